package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"bastion-panel/internal/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

var errBadOAuthState = errors.New("unknown oauth state")

const discordIdentityURL = "https://discord.com/api/users/@me"

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// oauthStates holds pending login states. Entries expire after ten minutes
// so abandoned logins do not accumulate.
type oauthStates struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func newOAuthStates() *oauthStates {
	return &oauthStates{states: make(map[string]time.Time)}
}

func (o *oauthStates) issue() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	state := hex.EncodeToString(raw)
	o.mu.Lock()
	defer o.mu.Unlock()
	for s, deadline := range o.states {
		if time.Now().After(deadline) {
			delete(o.states, s)
		}
	}
	o.states[state] = time.Now().Add(10 * time.Minute)
	return state, nil
}

func (o *oauthStates) consume(state string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	deadline, ok := o.states[state]
	if !ok {
		return false
	}
	delete(o.states, state)
	return time.Now().Before(deadline)
}

func (s *Server) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.OAuth.ClientID,
		ClientSecret: s.cfg.OAuth.ClientSecret,
		RedirectURL:  s.cfg.OAuth.RedirectURL,
		Scopes:       []string{"identify"},
		Endpoint:     discordEndpoint,
	}
}

func (s *Server) handleOAuthStart(c *gin.Context) {
	state, err := s.oauth.issue()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, s.oauthConfig().AuthCodeURL(state))
}

type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// handleOAuthCallback completes the code flow and mints a Viewer token for
// the authenticated Discord user.
func (s *Server) handleOAuthCallback(c *gin.Context) {
	if !s.oauth.consume(c.Query("state")) {
		s.fail(c, errBadOAuthState)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig().Exchange(ctx, c.Query("code"))
	if err != nil {
		s.fail(c, fmt.Errorf("oauth exchange: %w", err))
		return
	}

	client := s.oauthConfig().Client(ctx, token)
	resp, err := client.Get(discordIdentityURL)
	if err != nil {
		s.fail(c, fmt.Errorf("discord identity: %w", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.fail(c, fmt.Errorf("discord identity: status %d", resp.StatusCode))
		return
	}
	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		s.fail(c, err)
		return
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		s.fail(c, err)
		return
	}
	panelToken := hex.EncodeToString(raw)
	label := "discord:" + user.Username

	if _, err := s.store.InsertToken(ctx, storage.PanelToken{
		TokenHash: hashToken(panelToken),
		Role:      RoleViewer.String(),
		Label:     label,
		CreatedAt: time.Now(),
	}); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": panelToken,
		"role":  RoleViewer.String(),
		"label": label,
	})
}
