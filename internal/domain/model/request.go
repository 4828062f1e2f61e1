package model

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// CredentialsMode controls whether ambient credentials (cookies) travel with
// a transport call. It mirrors the credentials option of a browser fetch.
type CredentialsMode int

const (
	CredentialsOmit CredentialsMode = iota
	CredentialsInclude
)

// String returns the fetch-style name of the mode.
func (m CredentialsMode) String() string {
	if m == CredentialsInclude {
		return "include"
	}
	return "omit"
}

// Request describes an API call. At most one of JSON and Form is set.
// URL may be absolute or relative to the configured API base URL.
type Request struct {
	Method string
	URL    string
	Header http.Header
	JSON   any
	Form   *MultipartForm
}

// IsMultipart reports whether the request carries a multipart body.
func (r Request) IsMultipart() bool {
	return r.Form != nil
}

// MultipartForm is an ordered multipart/form-data body. Keys may repeat,
// which the records API relies on for attachment, cost and expense lists.
type MultipartForm struct {
	Fields []FormField
	Files  []FormFile
}

// FormField is a plain text part.
type FormField struct {
	Name  string
	Value string
}

// FormFile is a file part. Content is read once when the body is encoded.
type FormFile struct {
	Field    string
	FileName string
	Content  io.Reader
}

// AddField appends a text part and returns the form for chaining.
func (f *MultipartForm) AddField(name, value string) *MultipartForm {
	f.Fields = append(f.Fields, FormField{Name: name, Value: value})
	return f
}

// AddJSONField appends a text part holding the JSON encoding of v.
func (f *MultipartForm) AddJSONField(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode form field %q: %w", name, err)
	}
	f.AddField(name, string(data))
	return nil
}

// AddFile appends a file part and returns the form for chaining.
func (f *MultipartForm) AddFile(field, fileName string, content io.Reader) *MultipartForm {
	f.Files = append(f.Files, FormFile{Field: field, FileName: fileName, Content: content})
	return f
}

// Response is a successful API result. A nil Payload is JSON null, which is
// what 204 No Content responses produce.
type Response struct {
	Status  int
	Payload json.RawMessage
}

// IsNull reports whether the payload is JSON null.
func (r *Response) IsNull() bool {
	return r == nil || len(r.Payload) == 0 || string(r.Payload) == "null"
}

// Decode unmarshals the payload into v. A null payload leaves v untouched.
func (r *Response) Decode(v any) error {
	if r.IsNull() {
		return nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
