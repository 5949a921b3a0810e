// Package util holds small, widely-shared helpers that don't belong to any
// single component -- mirroring jacobin/util's grab-bag of path and name
// conversion routines.
package util

import (
	"os"
	"strings"
)

// ConvertToPlatformPathSeparators rewrites the JVM's slash-separated
// internal class names into the host's path separator, so a class name
// like "java/lang/String" becomes a filesystem-relative path on Windows
// too.
func ConvertToPlatformPathSeparators(name string) string {
	if os.PathSeparator == '/' {
		return name
	}
	return strings.ReplaceAll(name, "/", string(os.PathSeparator))
}

// ConvertInternalClassNameToUserFormat turns "java/lang/String" into
// "java.lang.String", the form used in Java source and in exception
// messages shown to users.
func ConvertInternalClassNameToUserFormat(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

// ConvertUserFormatToInternalClassName is the inverse of
// ConvertInternalClassNameToUserFormat.
func ConvertUserFormatToInternalClassName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// ParseIncomingParamsFromMethTypeSignature splits a JVM method descriptor's
// parameter section, e.g. "(IDLjava/lang/Thread;)" -> ["I", "D",
// "Ljava/lang/Thread;"], without the surrounding parens and without the
// return type. It does not validate the signature; callers that need a
// validated descriptor use classfile.ParseMethodDescriptor instead.
func ParseIncomingParamsFromMethTypeSignature(descriptor string) []string {
	start := strings.IndexByte(descriptor, '(')
	end := strings.IndexByte(descriptor, ')')
	if start < 0 || end < 0 || end < start {
		return nil
	}
	body := descriptor[start+1 : end]

	var params []string
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			params = append(params, string(body[i]))
		case 'L':
			j := strings.IndexByte(body[i:], ';')
			if j < 0 {
				return params
			}
			params = append(params, body[i:i+j+1])
			i += j
		case '[':
			j := i
			for j < len(body) && body[j] == '[' {
				j++
			}
			if j >= len(body) {
				return params
			}
			if body[j] == 'L' {
				k := strings.IndexByte(body[j:], ';')
				if k < 0 {
					return params
				}
				params = append(params, body[i:j+k+1])
				i = j + k
			} else {
				params = append(params, body[i:j+1])
				i = j
			}
		}
	}
	return params
}
