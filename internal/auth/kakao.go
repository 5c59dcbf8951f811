package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

var ErrKakaoExchange = errors.New("kakao code exchange failed")

// KakaoProfile is the subset of the Kakao user API response used for login.
type KakaoProfile struct {
	ID           string
	Nickname     string
	ThumbnailURL string
}

// KakaoClient performs the authorization-code flow against Kakao.
type KakaoClient struct {
	oauth      *oauth2.Config
	profileURL string
	httpClient *http.Client
}

type KakaoOption func(*KakaoClient)

// WithKakaoHTTPClient sets the HTTP client used for token and profile requests.
func WithKakaoHTTPClient(hc *http.Client) KakaoOption {
	return func(c *KakaoClient) { c.httpClient = hc }
}

func NewKakaoClient(clientID, clientSecret, redirectURL, authURL, tokenURL, profileURL string, opts ...KakaoOption) *KakaoClient {
	c := &KakaoClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: profileURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a client id is set.
func (c *KakaoClient) Configured() bool {
	return c != nil && c.oauth.ClientID != ""
}

// NewState returns a random value for the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// AuthCodeURL returns the Kakao consent page URL carrying state.
func (c *KakaoClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

type kakaoUser struct {
	ID         int64 `json:"id"`
	Properties struct {
		Nickname       string `json:"nickname"`
		ThumbnailImage string `json:"thumbnail_image"`
	} `json:"properties"`
	Account struct {
		Profile struct {
			Nickname          string `json:"nickname"`
			ThumbnailImageURL string `json:"thumbnail_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// Exchange trades an authorization code for a token and fetches the user's profile.
// Every failure wraps ErrKakaoExchange.
func (c *KakaoClient) Exchange(ctx context.Context, code string) (*KakaoProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token: %v", ErrKakaoExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build profile request: %v", ErrKakaoExchange, err)
	}
	resp, err := c.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: profile: %v", ErrKakaoExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile status %d", ErrKakaoExchange, resp.StatusCode)
	}

	var ku kakaoUser
	if err := json.NewDecoder(resp.Body).Decode(&ku); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", ErrKakaoExchange, err)
	}
	if ku.ID == 0 {
		return nil, fmt.Errorf("%w: profile without id", ErrKakaoExchange)
	}

	p := &KakaoProfile{
		ID:           strconv.FormatInt(ku.ID, 10),
		Nickname:     ku.Account.Profile.Nickname,
		ThumbnailURL: ku.Account.Profile.ThumbnailImageURL,
	}
	if p.Nickname == "" {
		p.Nickname = ku.Properties.Nickname
	}
	if p.ThumbnailURL == "" {
		p.ThumbnailURL = ku.Properties.ThumbnailImage
	}
	if p.Nickname == "" {
		p.Nickname = "카카오 사용자"
	}
	return p, nil
}
