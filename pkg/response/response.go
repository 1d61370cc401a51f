package response

// Error codes returned in the envelope
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Response is the envelope every endpoint returns
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorData describes a failed request
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PaginationMeta accompanies list responses
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success wraps data in a successful envelope
func Success(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// Paginated wraps a page of results with pagination metadata
func Paginated(data interface{}, page, perPage int, total int64) *Response {
	if page < 1 {
		page = 1
	}
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return &Response{
		Success: true,
		Data:    data,
		Meta: &PaginationMeta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// Error builds a failed envelope
func Error(code, message string) *Response {
	return &Response{
		Success: false,
		Error: &ErrorData{
			Code:    code,
			Message: message,
		},
	}
}

// ErrorWithDetails builds a failed envelope carrying extra detail
func ErrorWithDetails(code, message, details string) *Response {
	resp := Error(code, message)
	resp.Error.Details = details
	return resp
}

func BadRequest(message string) *Response {
	return Error(ErrCodeBadRequest, message)
}

func ValidationError(message string) *Response {
	return Error(ErrCodeValidation, message)
}

func NotFound(message string) *Response {
	return Error(ErrCodeNotFound, message)
}

func Conflict(message string) *Response {
	return Error(ErrCodeConflict, message)
}

func InternalError(message string) *Response {
	return Error(ErrCodeInternal, message)
}

func ServiceUnavailable(message string) *Response {
	return Error(ErrCodeServiceUnavailable, message)
}
