// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/curonhq/curon/services/server/datatypes"
)

// ParsePlan validates and repairs raw model output into a Plan.
//
// Models wrap JSON in code fences or prose despite instructions, so
// the adapter first slices out the outermost JSON object, then checks
// the required shape: "action" present and a string, "intents" present
// and an array, "message" key present (null is fine). Anything that
// fails the shape check is ErrTranslation; identities inside a shaped
// plan are NOT validated here — ownership checks belong to the
// interpreter.
func ParsePlan(raw string) (*datatypes.Plan, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTranslation, err)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &shape); err != nil {
		return nil, fmt.Errorf("%w: output is not a JSON object: %s", ErrTranslation, err)
	}

	actionRaw, ok := shape["action"]
	if !ok {
		return nil, fmt.Errorf("%w: missing action key", ErrTranslation)
	}
	var action string
	if err := json.Unmarshal(actionRaw, &action); err != nil || action == "" {
		return nil, fmt.Errorf("%w: action is not a string", ErrTranslation)
	}

	intentsRaw, ok := shape["intents"]
	if !ok {
		return nil, fmt.Errorf("%w: missing intents key", ErrTranslation)
	}
	var intentsProbe []json.RawMessage
	if err := json.Unmarshal(intentsRaw, &intentsProbe); err != nil {
		return nil, fmt.Errorf("%w: intents is not an array", ErrTranslation)
	}

	if _, ok := shape["message"]; !ok {
		return nil, fmt.Errorf("%w: missing message key", ErrTranslation)
	}

	var plan datatypes.Plan
	if err := json.Unmarshal([]byte(body), &plan); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTranslation, err)
	}
	plan.Normalize()
	return &plan, nil
}

// extractJSON strips markdown fences and slices from the first '{' to
// the last '}'.
func extractJSON(raw string) (string, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first == -1 || last == -1 || last < first {
		return "", fmt.Errorf("no JSON object found in model output")
	}
	return cleaned[first : last+1], nil
}
