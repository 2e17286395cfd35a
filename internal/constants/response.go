package constants

// Standard Response Field Keys
const (
	ResponseFieldTotal   = "total"
	ResponseFieldData    = "data"
	ResponseFieldMessage = "message"
	ResponseFieldDetails = "details"
	ResponseFieldError   = "error"
	ResponseFieldSuccess = "success"
)

func BuildListResponse(total int64, data any) map[string]any {
	return map[string]any{
		ResponseFieldTotal: total,
		ResponseFieldData:  data,
	}
}

// BuildErrorResponse builds the error envelope. details is usually the
// domain error message or a field -> message map from validation.
func BuildErrorResponse(message string, details any) map[string]any {
	response := map[string]any{
		ResponseFieldSuccess: false,
		ResponseFieldMessage: message,
	}

	if details != nil {
		response[ResponseFieldDetails] = details
	}

	return response
}

func BuildSuccessResponse(message string) map[string]any {
	return map[string]any{
		ResponseFieldSuccess: true,
		ResponseFieldMessage: message,
	}
}
