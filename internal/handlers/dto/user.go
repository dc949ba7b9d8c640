package dto

type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}
