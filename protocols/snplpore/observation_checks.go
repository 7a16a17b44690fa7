// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snplpore

import (
	"context"
	"fmt"

	"github.com/DataBridgeTech/dbqflag"
)

// Intermediate views pushed by multi step checks.
const (
	SnplTotalsView        = "qasub_j112_Mismatched_SNPL_Numbers"
	BandTotalsView        = "qasub_j122_Mismatched_Banded_Numbers"
	MismatchedBandObsView = "qasub_j162_Mismatched_Band_Obs"
	BandSummaryView       = "qasub_j172_Mismatched_Band_Summary"
)

func obs(name string) dbqflag.Expr {
	return dbqflag.Col(TableSnplObservations, name)
}

func banded(name string) dbqflag.Expr {
	return dbqflag.Col(TableSnplBanded, name)
}

func snplObservationColumns() []dbqflag.Expr {
	return []dbqflag.Expr{
		control(FieldEventID),
		obs(FieldSnplDataID),
		control("Loc_Name"),
		dbqflag.As(obs(FieldQCFlag), ViewSnplObsFlag),
		dbqflag.As(obs(FieldQCNotes), "SNPLObsQCNotes"),
		control("Start_Date"),
	}
}

func joinObservations(b *dbqflag.SelectBuilder) *dbqflag.SelectBuilder {
	return b.From(ControlView).
		InnerJoin(TableSnplObservations, dbqflag.Eq(control(FieldEventID), obs(FieldEventID)))
}

func observationTimeError(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	cols := append(snplObservationColumns(),
		control("Start_Time"),
		control("End_Time"),
		obs("SNPL_Time"),
	)

	return joinObservations(dbqflag.Select(append(cols, locator(control(FieldEventID))...)...)).
		Where(dbqflag.Or(
			dbqflag.Lt(obs("SNPL_Time"), control("Start_Time")),
			dbqflag.Gt(obs("SNPL_Time"), control("End_Time")),
		)).
		OrderByDesc(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

// snplTotalsQuery sums the SNPL observations of every event.
func snplTotalsQuery() *dbqflag.SelectBuilder {
	adults := dbqflag.Add(zeroIfNull(obs("SNPL_Male")), zeroIfNull(obs("SNPL_Female")), zeroIfNull(obs("SNPL_Unk")))
	return dbqflag.Select(
		obs(FieldEventID),
		dbqflag.As(dbqflag.Sum(adults), "Total_Adults"),
		dbqflag.As(dbqflag.Sum(zeroIfNull(obs("SNPL_Hatchlings"))), "Total_Hatch"),
		dbqflag.As(dbqflag.Sum(zeroIfNull(obs("SNPL_Fledglings"))), "Total_Fledge"),
		dbqflag.As(dbqflag.Sum(zeroIfNull(obs("SNPL_Bands"))), "Total_Bands"),
	).
		From(TableSnplObservations).
		GroupBy(obs(FieldEventID))
}

func pushSubView(ctx context.Context, yc *dbqflag.YearlyContext, name string, query *dbqflag.SelectBuilder) error {
	if err := yc.PushView(ctx, name, query.SQL(yc.Dialect())); err != nil {
		return fmt.Errorf("intermediate view: %w", err)
	}
	return nil
}

func mismatchedSnplNumbers(ctx context.Context, yc *dbqflag.YearlyContext) (string, error) {
	if err := pushSubView(ctx, yc, SnplTotalsView, snplTotalsQuery()); err != nil {
		return "", err
	}

	totals := func(name string) dbqflag.Expr { return dbqflag.Col(SnplTotalsView, name) }
	sameAdults := dbqflag.Eq(zeroIfNull(totals("Total_Adults")), zeroIfNull(details("SNPL_Adults")))
	sameHatch := dbqflag.Eq(zeroIfNull(totals("Total_Hatch")), zeroIfNull(details("SNPL_Hatchlings")))
	sameFledge := dbqflag.Eq(zeroIfNull(totals("Total_Fledge")), zeroIfNull(details("SNPL_Fledglings")))
	mismatchLabel := func(same dbqflag.Expr, label string) dbqflag.Expr {
		return dbqflag.Case(same, dbqflag.Str(""), dbqflag.Str(label))
	}

	cols := []dbqflag.Expr{
		control(FieldEventID),
		control("Loc_Name"),
		dbqflag.As(details(FieldQCFlag), ViewEventDetailsFlag),
		dbqflag.As(details(FieldQCNotes), "EventDetailsQCNotes"),
		control("Start_Date"),
		details("SNPL_Adults"),
		dbqflag.As(dbqflag.Concat(
			mismatchLabel(sameAdults, "Adults "),
			mismatchLabel(sameHatch, "Hatchlings "),
			mismatchLabel(sameFledge, "Fledglings "),
		), "Error"),
		dbqflag.As(totals("Total_Adults"), "Calc_Adults"),
		details("SNPL_Hatchlings"),
		dbqflag.As(totals("Total_Hatch"), "Calc_Hatch"),
		details("SNPL_Fledglings"),
		dbqflag.As(totals("Total_Fledge"), "Calc_Fledge"),
	}

	return dbqflag.Select(append(cols, locator(control(FieldEventID))...)...).
		From(ControlView).
		InnerJoin(SnplTotalsView, dbqflag.Eq(control(FieldEventID), totals(FieldEventID))).
		InnerJoin(TableEventDetails, dbqflag.Eq(control(FieldEventID), details(FieldEventID))).
		Where(dbqflag.Not(dbqflag.And(sameAdults, sameHatch, sameFledge))).
		OrderBy(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

func mismatchedBandedNumbers(ctx context.Context, yc *dbqflag.YearlyContext) (string, error) {
	if err := pushSubView(ctx, yc, BandTotalsView, snplTotalsQuery()); err != nil {
		return "", err
	}

	totalBands := dbqflag.Col(BandTotalsView, "Total_Bands")
	cols := []dbqflag.Expr{
		control(FieldEventID),
		control("Loc_Name"),
		dbqflag.As(details(FieldQCFlag), ViewEventDetailsFlag),
		dbqflag.As(details(FieldQCNotes), "EventDetailsQCNotes"),
		control("Start_Date"),
		details("SNPL_Banded"),
		dbqflag.As(totalBands, "Calc_Banded"),
	}

	return dbqflag.Select(append(cols, locator(control(FieldEventID))...)...).
		From(ControlView).
		InnerJoin(BandTotalsView, dbqflag.Eq(control(FieldEventID), dbqflag.Col(BandTotalsView, FieldEventID))).
		InnerJoin(TableEventDetails, dbqflag.Eq(control(FieldEventID), details(FieldEventID))).
		Where(dbqflag.Ne(totalBands, zeroIfNull(details("SNPL_Banded")))).
		OrderBy(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

func nestYearMismatch(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	nest := func(name string) dbqflag.Expr { return dbqflag.Col(TableNestMaster, name) }
	cols := []dbqflag.Expr{
		control(FieldEventID),
		obs(FieldSnplDataID),
		nest("Nest_ID"),
		dbqflag.As(obs(FieldQCFlag), ViewSnplObsFlag),
		dbqflag.As(obs(FieldQCNotes), "SNPLObsQCNotes"),
		dbqflag.As(control("Year"), "ObsYear"),
		dbqflag.As(nest("Year"), "NestYear"),
	}

	return joinObservations(dbqflag.Select(append(cols, locator(control(FieldEventID))...)...)).
		InnerJoin(TableNestMaster, dbqflag.Eq(nest("Nest_ID"), obs("Nest_ID"))).
		Where(dbqflag.Ne(control("Year"), nest("Year"))).
		SQL(yc.Dialect()), nil
}

func missingBandTotals(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	cols := append(snplObservationColumns(),
		obs("Nest_ID"),
		obs("SNPL_Time"),
		obs("SNPL_Bands"),
		banded("Left_Leg"),
		banded("Right_Leg"),
		banded("Band_Notes"),
	)

	return joinObservations(dbqflag.Select(append(cols, locator(control(FieldEventID))...)...)).
		InnerJoin(TableSnplBanded, dbqflag.Eq(obs(FieldSnplDataID), banded(FieldSnplDataID))).
		Where(dbqflag.Or(dbqflag.IsNull(obs("SNPL_Bands")), dbqflag.Eq(obs("SNPL_Bands"), dbqflag.Int(0)))).
		OrderBy(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

func missingBandData(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	cols := append(snplObservationColumns(),
		obs("Nest_ID"),
		obs("SNPL_Time"),
		dbqflag.As(obs("SNPL_Bands"), "Count_SNPL_Observations"),
		dbqflag.As(banded(FieldSnplDataID), "SNPL_Banded_Is_Null"),
		banded("Left_Leg"),
		banded("Right_Leg"),
		banded("Band_Notes"),
	)

	return joinObservations(dbqflag.Select(append(cols, locator(control(FieldEventID))...)...)).
		LeftJoin(TableSnplBanded, dbqflag.Eq(obs(FieldSnplDataID), banded(FieldSnplDataID))).
		Where(dbqflag.And(
			dbqflag.IsNotNull(obs("SNPL_Bands")),
			dbqflag.Gt(obs("SNPL_Bands"), dbqflag.Int(0)),
			dbqflag.IsNull(banded(FieldSnplDataID)),
		)).
		OrderByDesc(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

func mismatchedBandObservations(ctx context.Context, yc *dbqflag.YearlyContext) (string, error) {
	bandCount := dbqflag.Count(banded("SNPL_Band_ID"))
	groupCols := []dbqflag.Expr{
		obs(FieldEventID),
		obs(FieldSnplDataID),
		control("Loc_Name"),
		control("Start_Date"),
		obs("SNPL_Time"),
		obs("Nest_ID"),
		obs("SNPL_Bands"),
	}
	sub := dbqflag.Select(append(groupCols, dbqflag.As(bandCount, "CountSNPBanded"))...).
		From(ControlView).
		InnerJoin(TableSnplObservations, dbqflag.Eq(control(FieldEventID), obs(FieldEventID))).
		InnerJoin(TableSnplBanded, dbqflag.Eq(obs(FieldSnplDataID), banded(FieldSnplDataID))).
		GroupBy(groupCols...).
		Having(dbqflag.Ne(bandCount, obs("SNPL_Bands")))
	if err := pushSubView(ctx, yc, MismatchedBandObsView, sub); err != nil {
		return "", err
	}

	mismatch := func(name string) dbqflag.Expr { return dbqflag.Col(MismatchedBandObsView, name) }
	cols := []dbqflag.Expr{
		mismatch(FieldEventID),
		mismatch(FieldSnplDataID),
		mismatch("Loc_Name"),
		dbqflag.As(obs(FieldQCFlag), ViewSnplObsFlag),
		dbqflag.As(obs(FieldQCNotes), "SNPLObsQCNotes"),
		mismatch("Start_Date"),
		mismatch("SNPL_Time"),
		mismatch("Nest_ID"),
		mismatch("SNPL_Bands"),
		mismatch("CountSNPBanded"),
	}

	return dbqflag.Select(append(cols, locator(obs(FieldEventID))...)...).
		From(MismatchedBandObsView).
		InnerJoin(TableSnplObservations, dbqflag.Eq(mismatch(FieldSnplDataID), obs(FieldSnplDataID))).
		OrderBy(mismatch("Loc_Name")).
		OrderBy(mismatch("Start_Date")).
		SQL(yc.Dialect()), nil
}

func mismatchedBandSummary(ctx context.Context, yc *dbqflag.YearlyContext) (string, error) {
	sub := dbqflag.Select(
		obs(FieldEventID),
		details("SNPL_Banded"),
		dbqflag.As(dbqflag.Count(obs(FieldEventID)), "CountSNPLBanded"),
	).
		From(ControlView).
		InnerJoin(TableSnplObservations, dbqflag.Eq(control(FieldEventID), obs(FieldEventID))).
		InnerJoin(TableSnplBanded, dbqflag.Eq(obs(FieldSnplDataID), banded(FieldSnplDataID))).
		InnerJoin(TableEventDetails, dbqflag.Eq(control(FieldEventID), details(FieldEventID))).
		GroupBy(obs(FieldEventID), details("SNPL_Banded"))
	if err := pushSubView(ctx, yc, BandSummaryView, sub); err != nil {
		return "", err
	}

	summary := func(name string) dbqflag.Expr { return dbqflag.Col(BandSummaryView, name) }
	cols := []dbqflag.Expr{
		summary(FieldEventID),
		control("Loc_Name"),
		dbqflag.As(details(FieldQCFlag), ViewEventDetailsFlag),
		dbqflag.As(details(FieldQCNotes), "EventDetailsQCNotes"),
		control("Start_Date"),
		dbqflag.As(summary("SNPL_Banded"), "EventDetailsSNPL_Banded"),
		summary("CountSNPLBanded"),
	}

	return dbqflag.Select(append(cols, locator(details(FieldEventID))...)...).
		From(BandSummaryView).
		InnerJoin(ControlView, dbqflag.Eq(summary(FieldEventID), control(FieldEventID))).
		InnerJoin(TableEventDetails, dbqflag.Eq(summary(FieldEventID), details(FieldEventID))).
		Where(dbqflag.Ne(summary("SNPL_Banded"), summary("CountSNPLBanded"))).
		SQL(yc.Dialect()), nil
}

// predatorActivityType reads the realized predator actions first, then selects the surveys whose
// activity is not one of them.
func predatorActivityType(ctx context.Context, yc *dbqflag.YearlyContext) (string, error) {
	actions, err := yc.Read.Query(ctx, dbqflag.Select().From(TablePredatorActions).SQL(yc.Read.Dialect()))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", TablePredatorActions, err)
	}

	seen := make(map[string]struct{})
	var realized []dbqflag.Expr
	for i := 0; i < actions.Len(); i++ {
		value := actions.Value(i, FieldPredatorActionID)
		if value == nil {
			continue
		}
		action := fmt.Sprint(value)
		if _, dup := seen[action]; dup {
			continue
		}
		seen[action] = struct{}{}
		realized = append(realized, dbqflag.Str(action))
	}

	survey := func(name string) dbqflag.Expr { return dbqflag.Col(TablePredatorSurvey, name) }
	cols := []dbqflag.Expr{
		survey(FieldPredatorDataID),
		control(FieldEventID),
		control("Loc_Name"),
		control("Start_Date"),
		dbqflag.As(survey(FieldQCFlag), ViewPredatorFlag),
		dbqflag.As(survey(FieldQCNotes), "PredQCNotes"),
		dbqflag.As(dbqflag.Col(TablePredatorType, "Description"), "Predator"),
		survey("GroupSize"),
		survey("BinNumber"),
		survey("ACT"),
		survey("Waypoint"),
	}

	return dbqflag.Select(append(cols, locator(control(FieldEventID))...)...).
		From(ControlView).
		InnerJoin(TablePredatorSurvey, dbqflag.Eq(control(FieldEventID), survey(FieldEventID))).
		InnerJoin(TablePredatorType, dbqflag.Eq(dbqflag.Col(TablePredatorType, "Predator_Type_ID"), survey("Predator_Type_ID"))).
		Where(dbqflag.NotIn(survey("ACT"), realized...)).
		OrderByDesc(control("Start_Date")).
		SQL(yc.Dialect()), nil
}
