package dump1090

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"adsb_snapshot/internal/models"
)

// payloadKey is the top-level key holding the record list in aircraft.json
const payloadKey = "aircraft"

// classify decides whether a response carries a usable snapshot.
// Only a 200 whose body is {"aircraft": [ {...}, ... ]} is OK; the returned snapshot has
// its records decoded but no ID or fetch time yet.
func classify(statusCode int, body []byte) (*models.Snapshot, Outcome, error) {
	if statusCode != http.StatusOK {
		return nil, OutcomeTransient, fmt.Errorf("unexpected HTTP status %d", statusCode)
	}

	if !json.Valid(body) {
		return nil, OutcomeInvalid, fmt.Errorf("failed to decode JSON body")
	}

	var top map[string]json.RawMessage
	if firstByte(body) != '{' || json.Unmarshal(body, &top) != nil {
		return nil, OutcomeInvalid, fmt.Errorf("payload is not a JSON object")
	}

	list, ok := top[payloadKey]
	if !ok {
		return nil, OutcomeInvalid, fmt.Errorf("payload has no %q key", payloadKey)
	}

	var items []json.RawMessage
	if firstByte(list) != '[' || json.Unmarshal(list, &items) != nil {
		return nil, OutcomeInvalid, fmt.Errorf("%q is not an array", payloadKey)
	}

	records := make([]models.AircraftRecord, len(items))
	for i, item := range items {
		if firstByte(item) != '{' {
			return nil, OutcomeInvalid, fmt.Errorf("%s[%d] is not an object", payloadKey, i)
		}
		if err := json.Unmarshal(item, &records[i]); err != nil {
			return nil, OutcomeInvalid, fmt.Errorf("failed to decode %s[%d]: %w", payloadKey, i, err)
		}
	}

	return &models.Snapshot{Records: records, Raw: body}, OutcomeOK, nil
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
