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
	"fmt"
	"strings"
)

// FlagSeparator joins flag codes inside a record's flag field.
const FlagSeparator = ";"

// SplitFlagTokens returns the non-empty, trimmed codes of a flag field value.
func SplitFlagTokens(value string) []string {
	var tokens []string
	for _, part := range strings.Split(value, FlagSeparator) {
		part = strings.TrimSpace(part)
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// HasFlagToken reports whether the flag field value already carries code.
func HasFlagToken(value interface{}, code string) bool {
	for _, token := range SplitFlagTokens(flagString(value)) {
		if token == code {
			return true
		}
	}
	return false
}

// AppendFlagToken adds code to an existing flag field value unless it is already present.
// Existing codes keep their order and the new code goes last.
func AppendFlagToken(existing string, code string) string {
	if HasFlagToken(existing, code) {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return code
	}
	return existing + FlagSeparator + code
}

func flagString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
