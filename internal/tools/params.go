package tools

// GetStringParam extracts a string parameter, falling back to a default
// when the key is missing or has the wrong type.
func GetStringParam(params map[string]interface{}, key, fallback string) string {
	if value, ok := params[key].(string); ok {
		return value
	}
	return fallback
}

// GetInt64Param extracts an integer parameter. JSON decoding delivers
// numbers as float64, so both representations are accepted.
func GetInt64Param(params map[string]interface{}, key string, fallback int64) int64 {
	switch value := params[key].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case float64:
		return int64(value)
	default:
		return fallback
	}
}
