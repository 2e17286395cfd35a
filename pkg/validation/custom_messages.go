package validation

// CustomMessage returns per-field overrides keyed by validation tag.
func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"Email": {
			"required": "email is required",
			"email":    "email is not a valid address",
		},
		"Password": {
			"required": "password is required",
			"min":      "password must be at least 8 characters",
		},
		"Name": {
			"required": "name is required",
		},
		"Key": {
			"required": "key is required",
			"alphanum": "key may only contain letters and digits",
			"min":      "key must be 2 to 10 characters",
			"max":      "key must be 2 to 10 characters",
		},
		"Code": {
			"required": "code is required",
			"numeric":  "code must be numeric",
		},
		"IDToken": {
			"required": "idToken is required",
		},
		"Role": {
			"oneof": "role must be one of OWNER, ADMIN, MEMBER, VIEWER",
		},
		"Type": {
			"oneof": "type must be owner or member",
		},
		"Status": {
			"oneof": "status must be one of OPEN, IN_PROGRESS, DONE",
		},
		"Priority": {
			"oneof": "priority must be one of LOW, MEDIUM, HIGH",
		},
	}
	return customValidationMessages[field]
}
