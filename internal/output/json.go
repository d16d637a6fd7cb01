package output

import (
	"encoding/json"

	"github.com/islameehassan/listeners"
)

func ToJSON(ls []listeners.Listener) (string, error) {
	if ls == nil {
		ls = []listeners.Listener{}
	}
	data, err := json.MarshalIndent(ls, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
