package sdk

import (
	"encoding/json"
	"fmt"
)

// serialize encodes a request body.
func serialize(body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, NewError(ErrorTypeValidation, fmt.Sprintf("failed to marshal request body: %v", err), err)
	}
	return data, nil
}

// deserialize decodes a JSON body into dest.
func deserialize(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return NewError(ErrorTypeParse, fmt.Sprintf("failed to parse response: %v", err), err)
	}
	return nil
}

// parseBody turns the received bytes into generic JSON values. No bytes
// means no data; anything else must be valid JSON.
func parseBody(raw []byte) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var data interface{}
	if err := deserialize(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// convertValue copies src into dest through JSON. Storage backends that
// serialize values hand back generic maps; this restores the typed form.
func convertValue(src, dest interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to encode stored value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode stored value: %w", err)
	}
	return nil
}

// parseAPIError builds an APIError from a non-2xx response body.
func parseAPIError(statusCode int, body []byte) *APIError {
	if len(body) == 0 {
		return &APIError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("HTTP %d error", statusCode),
		}
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		// Platforms that answer with {"message": "..."} instead of {"error": "..."}
		var alt struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &alt) == nil && alt.Message != "" {
			return &APIError{StatusCode: statusCode, Message: alt.Message, Code: apiErr.Code}
		}
		return &APIError{
			StatusCode: statusCode,
			Message:    string(body),
		}
	}

	apiErr.StatusCode = statusCode
	return &apiErr
}
