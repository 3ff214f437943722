package props

import (
	"encoding/json"
	"strconv"
)

func decodeJSONString(raw string, out any) error {
	return json.Unmarshal([]byte(raw), out)
}

func parsePositiveInt(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}
