package gfunction

import (
	"fmt"
	"strconv"
	"strings"
)

// registerString installs java.lang.String's commonly used instance
// methods, adapted from jacobin's javaLangString.go to this engine's
// representation choice: a java/lang/String is a plain Go string, not a
// heap object wrapping a byte array, so every method here operates
// directly on args[0].(string) rather than unwrapping a field.
func registerString(r *Registry) error {
	registrations := []struct {
		method, desc string
		fn           Intrinsic
	}{
		{"length", "()I", stringLength},
		{"isEmpty", "()Z", stringIsEmpty},
		{"charAt", "(I)C", stringCharAt},
		{"concat", "(Ljava/lang/String;)Ljava/lang/String;", stringConcat},
		{"equals", "(Ljava/lang/Object;)Z", stringEquals},
		{"equalsIgnoreCase", "(Ljava/lang/String;)Z", stringEqualsIgnoreCase},
		{"compareTo", "(Ljava/lang/String;)I", stringCompareTo},
		{"toUpperCase", "()Ljava/lang/String;", stringToUpperCase},
		{"toLowerCase", "()Ljava/lang/String;", stringToLowerCase},
		{"trim", "()Ljava/lang/String;", stringTrim},
		{"substring", "(I)Ljava/lang/String;", stringSubstring1},
		{"substring", "(II)Ljava/lang/String;", stringSubstring2},
		{"indexOf", "(Ljava/lang/String;)I", stringIndexOf},
		{"contains", "(Ljava/lang/CharSequence;)Z", stringContains},
		{"hashCode", "()I", stringHashCode},
	}
	for _, reg := range registrations {
		if err := r.Register("java/lang/String", reg.method, reg.desc, Predicate{Kind: Any}, reg.fn); err != nil {
			return err
		}
	}
	return r.Register("java/lang/String", "valueOf", "(I)Ljava/lang/String;", Predicate{Kind: Any}, stringValueOfInt)
}

func receiverString(args []interface{}) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("java/lang/String: missing receiver")
	}
	s, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("java/lang/String: receiver is not a string")
	}
	return s, nil
}

func stringLength(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	return int32(len(s)), nil
}

func stringIsEmpty(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	return s == "", nil
}

func stringCharAt(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	idx, ok := args[1].(int32)
	if !ok {
		return nil, fmt.Errorf("String.charAt: expected int index")
	}
	if idx < 0 || int(idx) >= len(s) {
		return nil, fmt.Errorf("String.charAt: index %d out of bounds for length %d", idx, len(s))
	}
	return int32(s[idx]), nil
}

func stringConcat(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	other, _ := args[1].(string)
	return s + other, nil
}

func stringEquals(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	other, ok := args[1].(string)
	return ok && s == other, nil
}

func stringEqualsIgnoreCase(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	other, _ := args[1].(string)
	return strings.EqualFold(s, other), nil
}

func stringCompareTo(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	other, _ := args[1].(string)
	return int32(strings.Compare(s, other)), nil
}

func stringToUpperCase(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

func stringToLowerCase(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(s), nil
}

func stringTrim(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(s), nil
}

func stringSubstring1(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	begin, ok := args[1].(int32)
	if !ok || begin < 0 || int(begin) > len(s) {
		return nil, fmt.Errorf("String.substring: invalid begin index %v for length %d", args[1], len(s))
	}
	return s[begin:], nil
}

func stringSubstring2(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	begin, ok1 := args[1].(int32)
	end, ok2 := args[2].(int32)
	if !ok1 || !ok2 || begin < 0 || end < begin || int(end) > len(s) {
		return nil, fmt.Errorf("String.substring: invalid range [%v,%v) for length %d", args[1], args[2], len(s))
	}
	return s[begin:end], nil
}

func stringIndexOf(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	needle, _ := args[1].(string)
	return int32(strings.Index(s, needle)), nil
}

func stringContains(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	needle, _ := args[1].(string)
	return strings.Contains(s, needle), nil
}

func stringHashCode(_ interface{}, args []interface{}) (interface{}, error) {
	s, err := receiverString(args)
	if err != nil {
		return nil, err
	}
	// Matches java.lang.String.hashCode's defined recurrence (JLS ยง/api
	// doc: s[0]*31^(n-1) + ... + s[n-1]), not a Go hash -- Java code
	// frequently depends on this exact formula (e.g. for HashMap bucket
	// placement replicated across a JVM implementation).
	var h int32
	for i := 0; i < len(s); i++ {
		h = 31*h + int32(s[i])
	}
	return h, nil
}

func stringValueOfInt(_ interface{}, args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("String.valueOf: missing argument")
	}
	n, ok := args[0].(int32)
	if !ok {
		return nil, fmt.Errorf("String.valueOf: expected int argument")
	}
	return strconv.FormatInt(int64(n), 10), nil
}
