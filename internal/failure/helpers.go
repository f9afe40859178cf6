package failure

import (
	"strconv"
	"strings"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// splitName recovers first/last name from the stored full name so the
// notice template renders the same text as the original dispatch.
func splitName(full string) (string, string) {
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return full, ""
}
