package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// successResponse wraps every 2xx body.
type successResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type registrationRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName"  validate:"required,max=100"`
	Email     string `json:"email"     validate:"required,email"`
	Role      string `json:"role"      validate:"required,oneof=SUPER_ADMIN ADMIN PROJECT_MANAGER ENGINEER CLIENT"`
}

type resetPasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required,max=72"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

type forgetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type setNewPasswordRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// Pointers so that an explicit false passes "required".
type activeStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type softDeleteRequest struct {
	IsDeleted *bool `json:"isDeleted" validate:"required"`
}
