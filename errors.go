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

package dbqflag

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCheck is returned when a check id has no registered predicate. Fatal for the run.
	ErrUnknownCheck = errors.New("unknown check id")

	// ErrDescriptionTooLong is returned when a check description exceeds MaxDescriptionLength. Fatal for the run.
	ErrDescriptionTooLong = errors.New("check description too long")

	// ErrUnsupportedProtocol is returned by the coordinator for a protocol with no catalog.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrConnectivity marks failures reported by a DbqStore.
	ErrConnectivity = errors.New("connectivity failure")

	// ErrStoreBusy is returned when another process holds the write store.
	ErrStoreBusy = errors.New("store is in use by another process")
)

// Check execution steps, reported in CheckError.Op.
const (
	OpBuild       = "build"
	OpMaterialize = "materialize"
	OpCount       = "count"
	OpAnnotate    = "annotate"
	OpUpsert      = "upsert"
	OpFlag        = "flag"
)

// CheckError wraps a failure of a single check with the step that failed.
type CheckError struct {
	CheckID string
	Op      string
	Err     error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s failed at %s: %v", e.CheckID, e.Op, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the whole run regardless of the failure policy.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnknownCheck) ||
		errors.Is(err, ErrDescriptionTooLong) ||
		errors.Is(err, ErrUnsupportedProtocol) ||
		errors.Is(err, ErrStoreBusy)
}

// ConnectivityError tags err as ErrConnectivity while keeping the driver error in the chain.
func ConnectivityError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: failed to %s: %w", ErrConnectivity, op, err)
}
