package domain

// Document is a file attached to a capture. Its text is extracted and
// analyzed together with the typed text.
type Document struct {
	// Name is the file name; its extension is used when MIMEType is empty.
	Name     string
	MIMEType string
	Content  []byte
}
