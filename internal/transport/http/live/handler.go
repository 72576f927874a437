package livehttp

import (
	"net/http"
	"strconv"

	"pairloop/internal/adjuster"
	"pairloop/internal/report"
	"pairloop/internal/store/decisionlog"
	"pairloop/internal/strategy"

	"github.com/gin-gonic/gin"
)

// Handler 把策略/偏置/日志的只读视图和两个手动操作挂到 HTTP 上。
type Handler struct {
	strat  *strategy.SelfImprovingPairsStrategy
	adjust *adjuster.Adjuster
	declog *decisionlog.Store
}

func NewHandler(strat *strategy.SelfImprovingPairsStrategy, adjust *adjuster.Adjuster, declog *decisionlog.Store) *Handler {
	return &Handler{strat: strat, adjust: adjust, declog: declog}
}

// Register 注册 /api 路由。
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/summary", h.Summary)
	g.GET("/trades", h.Trades)
	g.GET("/adjustments", h.Adjustments)
	g.GET("/decisions", h.Decisions)
	g.POST("/review", h.Review)
	g.POST("/reset-bias", h.ResetBias)
}

// Summary 返回 profile、当前偏置与滚动统计的汇总视图。
func (h *Handler) Summary(c *gin.Context) {
	profile := h.strat.Profile()
	c.JSON(http.StatusOK, gin.H{
		"pair":       profile.Name,
		"leg_a":      profile.LegA,
		"leg_b":      profile.LegB,
		"bias":       h.adjust.StateSummary(),
		"open_trade": h.strat.OpenTrade(),
	})
}

// Trades 返回全部交易档案（倒序）。
func (h *Handler) Trades(c *gin.Context) {
	trades := h.strat.Trades()
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

// Adjustments 返回最近 n 条偏置调整审计记录。
func (h *Handler) Adjustments(c *gin.Context) {
	n := queryInt(c, "limit", 50)
	c.JSON(http.StatusOK, gin.H{"adjustments": h.adjust.History(n)})
}

// Decisions 返回最近 n 条决策周期日志。
func (h *Handler) Decisions(c *gin.Context) {
	if h.declog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision log disabled"})
		return
	}
	n := queryInt(c, "limit", 50)
	recs, err := h.declog.Recent(n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": recs})
}

// Review 无视计数立即触发一次绩效复盘。
func (h *Handler) Review(c *gin.Context) {
	res := h.strat.ReviewNow()
	c.JSON(http.StatusOK, gin.H{"result": res, "bias": h.adjust.CurrentBias()})
}

// ResetBias 把偏置重置回中性。
func (h *Handler) ResetBias(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "manual reset via HTTP"
	}
	h.adjust.ResetToNeutral(body.Reason)
	c.JSON(http.StatusOK, gin.H{"bias": h.adjust.CurrentBias()})
}

// Report 渲染自改进过程的 HTML 报表。
func (h *Handler) Report(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	in := report.Input{
		PairName:    h.strat.Profile().Name,
		Adjustments: h.adjust.History(0),
		Trades:      h.strat.Trades(),
	}
	if err := report.Render(c.Writer, in); err != nil {
		c.String(http.StatusInternalServerError, "render failed: %v", err)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
