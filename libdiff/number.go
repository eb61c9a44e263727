package libdiff

func isNumber(v any) bool {
	switch v.(type) {
	case int64, uint64, float64:
		return true
	}
	return false
}

// DiffNumber compares two numbers.  Integers and floats never compare
// equal, so a change of class is a replacement.
func DiffNumber(from, to any) *Diff {
	switch f := from.(type) {
	case int64:
		switch t := to.(type) {
		case int64:
			if f == t {
				return nil
			}
		case uint64:
			if f >= 0 && uint64(f) == t {
				return nil
			}
		}
	case uint64:
		switch t := to.(type) {
		case uint64:
			if f == t {
				return nil
			}
		case int64:
			if t >= 0 && uint64(t) == f {
				return nil
			}
		}
	case float64:
		if t, ok := to.(float64); ok && f == t {
			return nil
		}
	}
	return replace(from, to)
}
