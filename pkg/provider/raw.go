package provider

import (
	"bytes"
	"encoding/json"
)

// RawID conserva el identificador tal como llegó en el JSON (string o número) sin fallar
// al decodificar. La validación ocurre después con ParseID, para poder saltar un solo ítem
// en vez de rechazar todo el payload.
type RawID string

// UnmarshalJSON acepta "123", 123, "gid://..." y null.
func (r *RawID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*r = RawID(data)
			return nil
		}
		*r = RawID(s)
		return nil
	}
	*r = RawID(data)
	return nil
}

// Parse valida el valor crudo (ver ParseInt64ID).
func (r RawID) Parse() (ID, error) {
	return ParseInt64ID(string(r))
}
