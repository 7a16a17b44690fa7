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

// Package snplpore holds the quality control catalog of the Western Snowy Plover
// nest monitoring protocol at Point Reyes.
package snplpore

import (
	"context"
	"fmt"

	"github.com/DataBridgeTech/dbqflag"
)

const (
	ProtocolName = "SNPLPORE"

	// ControlView lists the events of the processing year and the events with no date.
	ControlView = "qsel_QA_Control"

	// DataEntryForm is the form operators use to navigate to a flagged record.
	DataEntryForm = "frm_Data_Entry"
)

// Source tables.
const (
	TableEvents           = "tbl_Events"
	TableLocations        = "tbl_Locations"
	TableEventDetails     = "tbl_Event_Details"
	TableEventContacts    = "xref_Event_Contacts"
	TableSnplObservations = "tbl_SNPL_Observations"
	TableSnplBanded       = "tbl_SNPL_Banded"
	TableNestMaster       = "tbl_Nest_Master"
	TablePredatorSurvey   = "tbl_Predator_Survey"
	TablePredatorType     = "tlu_Predator_Type"
	TablePredatorActions  = "tlu_Predator_Actions"
	TableProcessingLevel  = "tlu_Data_Processing_Level"
)

const (
	FieldQCFlag            = "QCFlag"
	FieldQCNotes           = "QCNotes"
	FieldEventID           = "Event_ID"
	FieldSnplDataID        = "SNPL_Data_ID"
	FieldPredatorDataID    = "Predator_Data_ID"
	FieldPredatorActionID  = "Predator_Action_ID"
	FieldProcessingLevelID = "DataProcessingLevelID"
)

// Flag columns exposed by the check views.
const (
	ViewEventDetailsFlag = "EventDetailsQCFlag"
	ViewEventFlag        = "EventQCFlag"
	ViewSnplObsFlag      = "SNPLObsQCFlag"
	ViewPredatorFlag     = "PredQCFlag"
)

func eventDetailsFlag(code string) dbqflag.FlagPolicy {
	return dbqflag.ApplyFlag(code, TableEventDetails, FieldQCFlag, ViewEventDetailsFlag, FieldEventID)
}

func snplObservationFlag(code string) dbqflag.FlagPolicy {
	return dbqflag.ApplyFlag(code, TableSnplObservations, FieldQCFlag, ViewSnplObsFlag, FieldSnplDataID)
}

// Protocol is the SNPLPORE check catalog.
type Protocol struct{}

func New() *Protocol {
	return &Protocol{}
}

func (p *Protocol) Name() string {
	return ProtocolName
}

type check struct {
	id          string
	description string
	build       dbqflag.PredicateBuilder
	flag        dbqflag.FlagPolicy
}

func catalog() []check {
	return []check{
		{"qa_a102_Unverified_Events", "Events of {{year}} not yet verified (processing level below 2 or missing)", unverifiedEvents, dbqflag.NoFlag},
		{"qa_f112_Incomplete_Weather", "Complete surveys of {{year}} missing weather condition data", incompleteWeather, eventDetailsFlag("DFO")},
		{"qa_f122_CompleteSurvey_IncompleteSNPL", "Complete surveys of {{year}} missing SNPL count fields", incompleteSnplCounts, eventDetailsFlag("DFO")},
		{"qa_f132_MoreCheckedSNPL_ThanTotal", "Events of {{year}} with more SNPL checked for bands than SNPL counted", moreCheckedThanTotal, eventDetailsFlag("LESPC")},
		{"qa_f142_MoreBandedSNPL_ThanChecked", "Events of {{year}} with more banded SNPL than SNPL checked for bands", moreBandedThanChecked, eventDetailsFlag("LESPB")},
		{"qa_f152_StopTime_MoreThanEvent", "Events of {{year}} where the predator stop time exceeds the survey duration", stopTimeMoreThanEvent, eventDetailsFlag("LEPST")},
		{"qa_h102_Missing_Observers", "Events of {{year}} without observers", missingObservers,
			dbqflag.ApplyFlag("DFO", TableEvents, FieldQCFlag, ViewEventFlag, FieldEventID)},
		{"qa_j102_SNPL_ObservationTime_Error", "SNPL observations of {{year}} recorded outside the event start and end time", observationTimeError, snplObservationFlag("LEOT")},
		{"qa_j112_Mismatched_SNPL_Numbers", "Events of {{year}} where SNPL totals differ from the sum of SNPL observations", mismatchedSnplNumbers, eventDetailsFlag("NSPLE")},
		{"qa_j122_Mismatched_Banded_Numbers", "Events of {{year}} where banded SNPL differ from the banded total of SNPL observations", mismatchedBandedNumbers, eventDetailsFlag("NSBPLE")},
		{"qa_j132_NestID_Year_Mismatch", "SNPL observations of {{year}} whose nest belongs to another year", nestYearMismatch, snplObservationFlag("OEYDNM")},
		{"qa_j142_Missing_Band_Totals", "SNPL observations of {{year}} with band records but no band total", missingBandTotals, snplObservationFlag("ONBLE")},
		{"qa_j152_Missing_Band_Data", "SNPL observations of {{year}} with a band total but no band records", missingBandData, snplObservationFlag("SNBO")},
		{"qa_j162_Mismatched_Band_Obs", "SNPL observations of {{year}} where the band total differs from the band records", mismatchedBandObservations, snplObservationFlag("ONBM")},
		{"qa_j172_Mismatched_Band_Summary", "Events of {{year}} where banded SNPL differ from the count of banded observations", mismatchedBandSummary, eventDetailsFlag("ESBNA")},
		{"qa_j182_Predator_ActivityType", "Predator surveys of {{year}} with an activity type missing from tlu_Predator_Actions", predatorActivityType,
			dbqflag.ApplyFlag("PAVU", TablePredatorSurvey, FieldQCFlag, ViewPredatorFlag, FieldPredatorDataID)},
	}
}

func (p *Protocol) Register(r *dbqflag.Registry) error {
	for _, c := range catalog() {
		if err := r.Register(c.id, c.description, c.build, c.flag); err != nil {
			return fmt.Errorf("failed to register %s check: %w", ProtocolName, err)
		}
	}
	return nil
}

// PrepareYear materializes the yearly control view every check filters through.
func (p *Protocol) PrepareYear(ctx context.Context, yc *dbqflag.YearlyContext) error {
	query := ControlQuery(yc.Year).SQL(yc.Dialect())
	if err := yc.PushView(ctx, ControlView, query); err != nil {
		return err
	}
	yc.ControlView = ControlView
	return nil
}

// ControlQuery selects the events of year, and the events with no start date, with their location.
func ControlQuery(year int) *dbqflag.SelectBuilder {
	ev := func(name string) dbqflag.Expr { return dbqflag.Col(TableEvents, name) }
	startDate := ev("Start_Date")

	return dbqflag.Select(
		ev(FieldEventID),
		dbqflag.Col(TableLocations, "Location_ID"),
		dbqflag.Col(TableLocations, "Loc_Name"),
		startDate,
		dbqflag.As(dbqflag.YearOf(startDate), "Year"),
		ev(FieldQCFlag),
		ev(FieldQCNotes),
		ev("Start_Time"),
		ev("End_Time"),
		ev("Verified_Date"),
		ev("Verified_By"),
		ev(FieldProcessingLevelID),
		ev("DataProcessingLevelDate"),
		ev("DataProcessingLevelUser"),
	).
		From(TableLocations).
		InnerJoin(TableEvents, dbqflag.Eq(dbqflag.Col(TableLocations, "Location_ID"), ev("Location_ID"))).
		Where(dbqflag.Or(
			dbqflag.Eq(dbqflag.YearOf(startDate), dbqflag.Int(int64(year))),
			dbqflag.IsNull(startDate),
		))
}

// control references a column of the yearly control view.
func control(name string) dbqflag.Expr {
	return dbqflag.Col(ControlView, name)
}

// locator adds the columns an operator uses to open the offending record.
func locator(recValue dbqflag.Expr) []dbqflag.Expr {
	return []dbqflag.Expr{
		dbqflag.As(dbqflag.Str(DataEntryForm), "varObject"),
		dbqflag.As(dbqflag.Str(TableEvents), "RecTable"),
		dbqflag.As(dbqflag.Str(FieldEventID), "RecField"),
		dbqflag.As(recValue, "RecValue"),
	}
}

func zeroIfNull(e dbqflag.Expr) dbqflag.Expr {
	return dbqflag.Coalesce(e, dbqflag.Int(0))
}
