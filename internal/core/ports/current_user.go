package ports

import "github.com/passagelab/classroom-api/internal/core/domain"

// GetCurrentUserQuery carries the access token presented by the caller.
type GetCurrentUserQuery struct {
	AccessToken string `json:"access_token"`
}

// GetCurrentUserResponse is the identity decoded from a valid access token.
// Exp is a Unix timestamp in seconds; it is carried as-is, callers decide
// whether the token is still live.
type GetCurrentUserResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Exp      int64  `json:"exp"`
}

func NewGetCurrentUserQuery(accessToken string) GetCurrentUserQuery {
	return GetCurrentUserQuery{AccessToken: accessToken}
}

// ParseGetCurrentUserQuery builds a query from a JSON object. It fails with a
// *domain.ValidationError when access_token is absent or not a string.
func ParseGetCurrentUserQuery(data []byte) (GetCurrentUserQuery, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return GetCurrentUserQuery{}, err
	}

	verr := &domain.ValidationError{}
	q := GetCurrentUserQuery{
		AccessToken: obj.str("access_token", verr),
	}
	if err := verr.OrNil(); err != nil {
		return GetCurrentUserQuery{}, err
	}
	return q, nil
}

// ParseGetCurrentUserResponse builds a response from a JSON object. Every
// missing or mistyped field is reported, so a partial response is never
// returned.
func ParseGetCurrentUserResponse(data []byte) (GetCurrentUserResponse, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return GetCurrentUserResponse{}, err
	}

	verr := &domain.ValidationError{}
	r := GetCurrentUserResponse{
		Username: obj.str("username", verr),
		Role:     obj.str("role", verr),
		UserID:   obj.str("user_id", verr),
		Email:    obj.str("email", verr),
		FullName: obj.str("full_name", verr),
		Exp:      obj.integer("exp", verr),
	}
	if err := verr.OrNil(); err != nil {
		return GetCurrentUserResponse{}, err
	}
	return r, nil
}
