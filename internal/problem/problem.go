// Package problem holds the structured success/problem documents returned by
// the synchronous ordering surface (RFC 7807 shaped).
package problem

import "net/http"

type Response struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// IsProblem reports whether the response describes a failure.
func (r Response) IsProblem() bool {
	return r.Status >= http.StatusBadRequest
}

func Created(title, detail, instance string, extensions map[string]any) Response {
	return Response{
		Type:       "https://httpstatuses.com/201",
		Title:      title,
		Status:     http.StatusCreated,
		Detail:     detail,
		Instance:   instance,
		Extensions: extensions,
	}
}

// Validation — терминальный отказ из-за невалидного поля запроса.
func Validation(detail, instance string) Response {
	return Response{
		Type:     "https://httpstatuses.com/400",
		Title:    "Invalid request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	}
}

// NotFound — нет статической привязки (например, неизвестный pod).
func NotFound(detail, instance string) Response {
	return Response{
		Type:     "https://httpstatuses.com/404",
		Title:    "Unknown resource",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	}
}

// Upstream — внешний вызов вернул не-успех; для текущего сообщения терминально.
func Upstream(detail, instance string) Response {
	return Response{
		Type:     "https://httpstatuses.com/502",
		Title:    "Upstream call failed",
		Status:   http.StatusBadGateway,
		Detail:   detail,
		Instance: instance,
	}
}

func Internal(detail, instance string) Response {
	return Response{
		Type:     "https://httpstatuses.com/500",
		Title:    "Internal error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	}
}
