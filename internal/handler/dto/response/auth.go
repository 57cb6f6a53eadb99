package response

import "flightshare/internal/usecase/queries"

type LoginResponse struct {
	AccessToken  string                      `json:"accessToken"`
	IdentityHint string                      `json:"identityHint,omitempty"`
	User         *queries.AuthorizedUserView `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}
