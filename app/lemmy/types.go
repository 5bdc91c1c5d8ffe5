package lemmy

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

type loginResponse struct {
	JWT string `json:"jwt"`
}

type community struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type communityView struct {
	Community community `json:"community"`
}

type getCommunityResponse struct {
	CommunityView *communityView `json:"community_view"`
}

type createPostRequest struct {
	CommunityID int    `json:"community_id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Body        string `json:"body,omitempty"`
}
