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

	"github.com/DataBridgeTech/dbqflag"
)

func details(name string) dbqflag.Expr {
	return dbqflag.Col(TableEventDetails, name)
}

func eventDetailsColumns() []dbqflag.Expr {
	return []dbqflag.Expr{
		control(FieldEventID),
		control("Start_Date"),
		control("Loc_Name"),
		dbqflag.As(details(FieldQCFlag), ViewEventDetailsFlag),
		dbqflag.As(details(FieldQCNotes), "EventDetailsQCNotes"),
	}
}

// incompleteOn matches complete surveys where any of fields is missing.
func incompleteOn(fields ...string) dbqflag.Expr {
	complete := dbqflag.Eq(details("Incomplete_Survey"), dbqflag.Bool(false))
	missing := make([]dbqflag.Expr, len(fields))
	for i, f := range fields {
		missing[i] = dbqflag.IsNull(details(f))
	}
	return dbqflag.And(complete, dbqflag.Or(missing...))
}

func joinEventDetails(b *dbqflag.SelectBuilder) *dbqflag.SelectBuilder {
	return b.From(ControlView).
		InnerJoin(TableEventDetails, dbqflag.Eq(control(FieldEventID), details(FieldEventID)))
}

func unverifiedEvents(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	level := control(FieldProcessingLevelID)
	cols := []dbqflag.Expr{
		control(FieldEventID),
		control("Start_Date"),
		control("Loc_Name"),
		control(FieldQCFlag),
		control(FieldQCNotes),
		dbqflag.As(dbqflag.Col(TableProcessingLevel, "Label"), "DataProcessingLevel"),
	}

	return dbqflag.Select(append(cols, locator(control(FieldEventID))...)...).
		From(ControlView).
		LeftJoin(TableProcessingLevel, dbqflag.Eq(level, dbqflag.Col(TableProcessingLevel, FieldProcessingLevelID))).
		Where(dbqflag.Or(dbqflag.Lt(level, dbqflag.Int(2)), dbqflag.IsNull(level))).
		OrderBy(control("Start_Date")).
		OrderBy(control("Loc_Name")).
		SQL(yc.Dialect()), nil
}

func incompleteWeather(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	weather := []string{"Wind_Spd", "Wind_Max", "Wind_Dir", "Air_Temp", "Rel_Hum", "Cloud_Cover"}
	cols := eventDetailsColumns()
	cols = append(cols, details("Incomplete_Survey"))
	for _, f := range weather {
		cols = append(cols, details(f))
	}
	cols = append(cols, details("Event_Notes"))

	return joinEventDetails(dbqflag.Select(append(cols, locator(details(FieldEventID))...)...)).
		Where(incompleteOn(weather...)).
		OrderBy(control("Start_Date")).
		OrderBy(control("Loc_Name")).
		SQL(yc.Dialect()), nil
}

func incompleteSnplCounts(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	counts := []string{"SNPL_Adults", "SNPL_Hatchlings", "SNPL_Fledglings", "SNPL_Checked_Bands", "SNPL_Banded"}
	cols := eventDetailsColumns()
	cols = append(cols, details("Incomplete_Survey"))
	for _, f := range counts {
		cols = append(cols, details(f))
	}
	cols = append(cols, details("Event_Notes"))

	return joinEventDetails(dbqflag.Select(append(cols, locator(details(FieldEventID))...)...)).
		Where(incompleteOn(counts...)).
		OrderByDesc(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

func moreCheckedThanTotal(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	total := dbqflag.Add(details("SNPL_Adults"), details("SNPL_Hatchlings"), details("SNPL_Fledglings"))
	cols := append(eventDetailsColumns(),
		details("SNPL_Adults"),
		details("SNPL_Hatchlings"),
		details("SNPL_Fledglings"),
		dbqflag.As(total, "TotalSNPL"),
		details("SNPL_Checked_Bands"),
		details("SNPL_Banded"),
		details("Event_Notes"),
	)

	return joinEventDetails(dbqflag.Select(append(cols, locator(details(FieldEventID))...)...)).
		Where(dbqflag.Lt(total, details("SNPL_Checked_Bands"))).
		OrderByDesc(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

func moreBandedThanChecked(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	cols := append(eventDetailsColumns(),
		details("SNPL_Adults"),
		details("SNPL_Hatchlings"),
		details("SNPL_Fledglings"),
		details("SNPL_Checked_Bands"),
		details("SNPL_Banded"),
		details("Event_Notes"),
	)

	return joinEventDetails(dbqflag.Select(append(cols, locator(details(FieldEventID))...)...)).
		Where(dbqflag.Gt(details("SNPL_Banded"), details("SNPL_Checked_Bands"))).
		OrderByDesc(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

func stopTimeMoreThanEvent(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	surveyMinutes := dbqflag.MinutesBetween(control("Start_Time"), control("End_Time"))
	cols := append(eventDetailsColumns(),
		details("Predator_Notes"),
		details("PredatorStop"),
		details("Event_Notes"),
		dbqflag.As(surveyMinutes, "SurveyMinutes"),
		control("Start_Time"),
		control("End_Time"),
	)

	return joinEventDetails(dbqflag.Select(append(cols, locator(details(FieldEventID))...)...)).
		Where(dbqflag.Lt(surveyMinutes, details("PredatorStop"))).
		OrderByDesc(control("Start_Date")).
		SQL(yc.Dialect()), nil
}

func missingObservers(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
	contact := dbqflag.Col(TableEventContacts, "Contact_ID")
	cols := []dbqflag.Expr{
		control(FieldEventID),
		control("Start_Date"),
		control("Loc_Name"),
		dbqflag.As(control(FieldQCFlag), ViewEventFlag),
		dbqflag.As(control(FieldQCNotes), "EventQCNotes"),
		contact,
	}

	return dbqflag.Select(append(cols, locator(control(FieldEventID))...)...).
		From(ControlView).
		LeftJoin(TableEventContacts, dbqflag.Eq(control(FieldEventID), dbqflag.Col(TableEventContacts, FieldEventID))).
		Where(dbqflag.IsNull(contact)).
		SQL(yc.Dialect()), nil
}
