package core

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Actions the frontend sends as ?action=<name>.
const (
	ActionCheck               = "check"
	ActionAuthStatus          = "auth_status"
	ActionLogin               = "login"
	ActionLogout              = "logout"
	ActionGetAllProducts      = "get_all_products"
	ActionGetProduct          = "get_product"
	ActionGetProductByBarcode = "get_product_by_barcode"
	ActionSearch              = "search"
	ActionCreateProduct       = "create_product"
	ActionAddRecord           = "add_record"
	ActionDeleteProduct       = "delete_product"
)

type action struct {
	public bool
	method string // empty accepts any method
	handle gin.HandlerFunc
}

// Gateway admits or rejects each API action. Public actions skip the session
// check; every other action needs a valid session, checked afresh per request.
type Gateway struct {
	credentials CredentialVerifier
	limiter     LoginLimiter
	sessions    *SessionManager
	products    ProductRepository
	metrics     *AuthMetrics
	actions     map[string]action
}

func NewGateway(credentials CredentialVerifier, limiter LoginLimiter, sessions *SessionManager, products ProductRepository, metrics *AuthMetrics) *Gateway {
	g := &Gateway{
		credentials: credentials,
		limiter:     limiter,
		sessions:    sessions,
		products:    products,
		metrics:     metrics,
	}
	g.actions = map[string]action{
		ActionCheck:      {public: true, method: http.MethodGet, handle: g.check},
		ActionAuthStatus: {public: true, method: http.MethodGet, handle: g.authStatus},
		ActionLogin:      {public: true, method: http.MethodPost, handle: g.login},
		ActionLogout:     {public: true, method: http.MethodPost, handle: g.logout},

		ActionGetAllProducts:      {method: http.MethodGet, handle: g.getAllProducts},
		ActionGetProduct:          {method: http.MethodGet, handle: g.getProduct},
		ActionGetProductByBarcode: {method: http.MethodGet, handle: g.getProductByBarcode},
		ActionSearch:              {method: http.MethodGet, handle: g.search},
		ActionCreateProduct:       {method: http.MethodPost, handle: g.createProduct},
		ActionAddRecord:           {method: http.MethodPost, handle: g.addRecord},
		ActionDeleteProduct:       {method: http.MethodPost, handle: g.deleteProduct},
	}
	return g
}

// IsPublic reports whether name bypasses the session check.
func (g *Gateway) IsPublic(name string) bool {
	a, ok := g.actions[name]
	return ok && a.public
}

// Dispatch routes ?action= to its handler after the session check.
// Unknown actions are treated as protected, so anonymous callers learn nothing about them.
func (g *Gateway) Dispatch(c *gin.Context) {
	name := c.Query("action")
	act, known := g.actions[name]

	if !known || !act.public {
		ok, err := g.sessions.Validate(c.Writer, c.Request)
		if err != nil {
			g.internalError(c, name, err)
			return
		}
		if !ok {
			respondAuthError(c, ErrUnauthorized)
			return
		}
	}

	if !known {
		respondError(c, http.StatusBadRequest, "Invalid action")
		return
	}
	if act.method != "" && c.Request.Method != act.method {
		respondError(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	act.handle(c)
}

func (g *Gateway) check(c *gin.Context) {
	respondOK(c)
}

func (g *Gateway) authStatus(c *gin.Context) {
	ok, err := g.sessions.Validate(c.Writer, c.Request)
	if err != nil {
		log.Printf("[session] auth_status lookup failed: %v", err)
		ok = false
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": ok})
}

// login runs the short-circuiting sequence: configured, password present,
// not throttled, then verify. A throttled caller never reaches Verify.
func (g *Gateway) login(c *gin.Context) {
	ctx := c.Request.Context()

	if err := g.credentials.Configured(ctx); err != nil {
		g.rejectLogin(c, "", err)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Password = ""
	}
	password := strings.TrimSpace(req.Password)
	if password == "" {
		g.rejectLogin(c, "", ErrPasswordRequired)
		return
	}

	ip := c.ClientIP()
	limited, retryAfter, err := g.limiter.IsLimited(ctx, ip)
	if err != nil {
		g.rejectLogin(c, ip, err)
		return
	}
	if limited {
		g.rejectLogin(c, ip, &ThrottleError{RetryAfterSeconds: retryAfter})
		return
	}

	ok, err := g.credentials.Verify(ctx, password)
	if err != nil {
		g.rejectLogin(c, ip, err)
		return
	}
	if !ok {
		// A ledger fault fails closed.
		if err := g.limiter.RecordFailure(ctx, ip); err != nil {
			g.rejectLogin(c, ip, err)
			return
		}
		g.rejectLogin(c, ip, ErrInvalidCredentials)
		return
	}

	if err := g.limiter.Clear(ctx, ip); err != nil {
		log.Printf("[ratelimit] clear failed ip=%s: %v", ip, err)
	}
	if err := g.sessions.Issue(c.Writer, c.Request); err != nil {
		g.rejectLogin(c, ip, err)
		return
	}
	g.metrics.Login(LoginOutcomeOK)
	log.Printf("[auth] login ok ip=%s", ip)
	respondOK(c)
}

func (g *Gateway) rejectLogin(c *gin.Context, ip string, err error) {
	var throttled *ThrottleError
	switch {
	case errors.As(err, &throttled):
		g.metrics.Login(LoginOutcomeThrottled)
		log.Printf("[auth] login throttled ip=%s retry_after=%ds", ip, throttled.RetryAfterSeconds)
	case errors.Is(err, ErrInvalidCredentials):
		g.metrics.Login(LoginOutcomeInvalid)
		log.Printf("[auth] login rejected ip=%s", ip)
	case errors.Is(err, ErrPasswordRequired):
		g.metrics.Login(LoginOutcomeBadRequest)
	case errors.Is(err, ErrAuthNotConfigured):
		g.metrics.Login(LoginOutcomeUnconfigured)
		log.Printf("[auth] login refused: credential or pepper not configured")
	default:
		g.metrics.Login(LoginOutcomeError)
		log.Printf("[auth] login failed ip=%s: %v", ip, err)
	}
	respondAuthError(c, err)
}

func (g *Gateway) logout(c *gin.Context) {
	if err := g.sessions.Destroy(c.Writer, c.Request); err != nil {
		g.internalError(c, ActionLogout, err)
		return
	}
	respondOK(c)
}

func (g *Gateway) getAllProducts(c *gin.Context) {
	items, err := g.products.List(c.Request.Context())
	if err != nil {
		g.internalError(c, ActionGetAllProducts, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (g *Gateway) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := g.products.Get(c.Request.Context(), id)
	g.respondProduct(c, ActionGetProduct, p, err)
}

func (g *Gateway) getProductByBarcode(c *gin.Context) {
	barcode := strings.TrimSpace(c.Query("barcode"))
	if barcode == "" {
		respondError(c, http.StatusBadRequest, "barcode is required")
		return
	}
	p, err := g.products.GetByBarcode(c.Request.Context(), barcode)
	g.respondProduct(c, ActionGetProductByBarcode, p, err)
}

// respondProduct answers a missing product with JSON null, which the scanner flow uses as "not yet tracked".
func (g *Gateway) respondProduct(c *gin.Context, name string, p *Product, err error) {
	if errors.Is(err, ErrProductNotFound) {
		c.JSON(http.StatusOK, nil)
		return
	}
	if err != nil {
		g.internalError(c, name, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (g *Gateway) search(c *gin.Context) {
	items, err := g.products.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		g.internalError(c, ActionSearch, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (g *Gateway) createProduct(c *gin.Context) {
	var in ProductCreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "No data provided")
		return
	}
	if strings.TrimSpace(in.Barcode) == "" || strings.TrimSpace(in.Name) == "" {
		respondError(c, http.StatusBadRequest, "barcode and name are required")
		return
	}
	p, err := g.products.Create(c.Request.Context(), in)
	if err != nil {
		g.internalError(c, ActionCreateProduct, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (g *Gateway) addRecord(c *gin.Context) {
	var in RecordInput
	if err := c.ShouldBindJSON(&in); err != nil || in.ProductID <= 0 {
		respondError(c, http.StatusBadRequest, "product_id is required")
		return
	}
	rec, err := g.products.AddRecord(c.Request.Context(), in)
	if err != nil {
		g.internalError(c, ActionAddRecord, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		respondError(c, http.StatusBadRequest, "invalid id")
		return
	}
	if err := g.products.Delete(c.Request.Context(), req.ID); err != nil {
		g.internalError(c, ActionDeleteProduct, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// internalError logs the detail and sends the client a generic 500.
func (g *Gateway) internalError(c *gin.Context, name string, err error) {
	log.Printf("[gateway] action=%s failed: %v", name, err)
	respondError(c, http.StatusInternalServerError, "Internal server error")
}
