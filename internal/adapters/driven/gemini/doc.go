// Package gemini implements the content generator on the Gemini API using
// google.golang.org/genai.
//
// Each call is made with an explicit API key chosen by the caller; the
// generator caches one client per key but holds no rotation state.
package gemini
