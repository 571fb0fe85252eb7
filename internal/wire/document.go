package wire

import "time"

// Document is a single stored record.
type Document struct {
	Name       string     `json:"name,omitempty"`
	Fields     Fields     `json:"fields,omitempty"`
	CreateTime *time.Time `json:"createTime,omitempty"`
	UpdateTime *time.Time `json:"updateTime,omitempty"`
}

// Response is the body of a read. A collection read carries Documents,
// a document read carries the embedded record.
type Response struct {
	Document
	Documents     []Document `json:"documents,omitempty"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// IsCollection reports whether the documents member was present in the body.
func (r *Response) IsCollection() bool {
	return r.Documents != nil
}

// PatchRequest is the body of a partial update.
type PatchRequest struct {
	Fields Fields `json:"fields"`
}

// ErrorResponse is the error envelope returned by Google APIs.
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
