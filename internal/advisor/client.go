package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pefman/w40k-companion/internal/cache"
	"github.com/pefman/w40k-companion/internal/models"
	"github.com/pefman/w40k-companion/internal/stats"
)

// ========================= Remote Advice Client =========================
// Talks to the hosted advice service. Responses are cached per session,
// side and round so repeated opens of the advisor panel don't burn tokens.

// Advice is one generated recommendation.
type Advice struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// Balance is the remaining token allowance for this deployment.
type Balance struct {
	Tokens int `json:"tokens"`
}

type adviceRequest struct {
	Mission  string            `json:"mission,omitempty"`
	Round    int               `json:"round"`
	Side     models.Side       `json:"side"`
	Army     stats.ArmySummary `json:"army"`
	Opponent stats.ArmySummary `json:"opponent"`
	Report   Report            `json:"report"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *cache.TTL[Advice]
	log     *zap.Logger
}

func NewClient(baseURL, token string, ttl time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   cache.New[Advice](ttl),
		log:     log,
	}
}

// Enabled reports whether a remote advice service is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// Advise asks the remote service for guidance for one side. The session
// snapshot must be a stable copy; the client never mutates it.
func (c *Client) Advise(ctx context.Context, sess *models.Session, side models.Side) (Advice, error) {
	if !c.Enabled() {
		return Advice{}, fmt.Errorf("advice service not configured")
	}
	key := fmt.Sprintf("%s/%s/r%d", sess.ID, side, sess.Round)
	return c.cache.GetOrFetch(key, func() (Advice, error) {
		req := adviceRequest{
			Mission:  sess.Mission,
			Round:    sess.Round,
			Side:     side,
			Army:     stats.SummarizeArmy(sess.SideState(side).Units),
			Opponent: stats.SummarizeArmy(sess.SideState(otherSide(side)).Units),
			Report:   Analyze(sess, side),
		}
		adv, err := c.post(ctx, "/v1/advice", req)
		if err != nil {
			c.log.Warn("advice request failed", zap.String("session", sess.ID), zap.Error(err))
			return Advice{}, err
		}
		c.log.Info("advice generated",
			zap.String("session", sess.ID), zap.String("side", string(side)),
			zap.Int("tokens", adv.TokensUsed))
		return adv, nil
	})
}

// TokenBalance fetches the remaining allowance.
func (c *Client) TokenBalance(ctx context.Context) (Balance, error) {
	if !c.Enabled() {
		return Balance{}, fmt.Errorf("advice service not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/balance", nil)
	if err != nil {
		return Balance{}, err
	}
	var out Balance
	if err := c.do(req, &out); err != nil {
		return Balance{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (Advice, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Advice{}, fmt.Errorf("encode advice request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Advice{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	var out Advice
	if err := c.do(req, &out); err != nil {
		return Advice{}, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("advice service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("advice service returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode advice response: %w", err)
	}
	return nil
}
