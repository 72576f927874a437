package app

import (
	"context"
	"fmt"

	"pairloop/internal/adjuster"
	"pairloop/internal/analyzer"
	"pairloop/internal/config"
	"pairloop/internal/engine"
	"pairloop/internal/gateway/binance"
	"pairloop/internal/gateway/exchange"
	"pairloop/internal/gateway/notifier"
	"pairloop/internal/gateway/provider"
	"pairloop/internal/logger"
	"pairloop/internal/outcome"
	"pairloop/internal/pair"
	"pairloop/internal/store/decisionlog"
	"pairloop/internal/store/gormstore"
	"pairloop/internal/strategy"
	livehttp "pairloop/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// 中文说明：
// App 负责按配置组装全部组件并托管生命周期：
// 引擎循环、HTTP 服务与 profile 热加载在同一个 errgroup 内运行，
// 任何一个失败都会取消其余。

type App struct {
	cfg    *config.Config
	pairs  *pair.Manager
	engine *engine.PairsEngine
	server *livehttp.Server

	mirror *gormstore.GormStore
	declog *decisionlog.Store
}

func NewApp(cfg *config.Config) (*App, error) {
	pairs, err := pair.NewManager(cfg.Pair.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("加载 pair profile 失败: %w", err)
	}
	profile := pairs.Current()

	tracker, err := outcome.NewTracker(cfg.Storage.OutcomePath, profile.LegA, profile.LegB)
	if err != nil {
		return nil, fmt.Errorf("初始化 outcome tracker 失败: %w", err)
	}
	adjust, err := adjuster.New(cfg.Storage.AdjusterPath, profile.LegA, profile.LegB)
	if err != nil {
		return nil, fmt.Errorf("初始化 adjuster 失败: %w", err)
	}

	model := provider.FromConfig(cfg.AI)
	if model == nil {
		logger.Warnf("AI 未启用，方向选择将走偏置/默认降级链")
	}

	strat := strategy.NewSelfImprovingPairsStrategy(pairs, tracker, analyzer.New(), adjust, model, cfg.Trading)

	source, err := binance.New(cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("初始化行情源失败: %w", err)
	}

	var exch exchange.Exchange
	if cfg.Trading.IsPaper() {
		exch = exchange.NewPaper()
	} else {
		// 实盘执行通道未接入前拒绝启动，避免误以为在实盘。
		return nil, fmt.Errorf("trading.mode=live 尚未支持，请使用 paper")
	}
	logger.Infof("执行模式: %s", exch.Name())

	var tg notifier.Notifier
	if cfg.Notify.Telegram.Enabled {
		tg = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	mirror, err := gormstore.NewGormStore(cfg.Storage.TradeDBPath)
	if err != nil {
		return nil, fmt.Errorf("初始化 trade 镜像库失败: %w", err)
	}
	declog, err := decisionlog.New(cfg.Storage.DecisionLogPath)
	if err != nil {
		return nil, fmt.Errorf("初始化决策日志库失败: %w", err)
	}
	adjust.SetAuditSink(func(rec adjuster.Record) {
		if err := mirror.SaveAdjustment(rec); err != nil {
			logger.Warnf("镜像偏置调整记录失败: %v", err)
		}
		if tg != nil {
			msg := fmt.Sprintf("🧭 偏置调整 %.2f → %.2f\n依据: %s\n%s",
				rec.OldBias, rec.NewBias, rec.Recommendation, rec.Reasoning)
			if err := tg.SendText(msg); err != nil {
				logger.Warnf("推送偏置调整通知失败: %v", err)
			}
		}
	})

	eng := engine.New(strat, source, exch, tg, mirror, declog)

	handler := livehttp.NewHandler(strat, adjust, declog)
	server, err := livehttp.NewServer(livehttp.ServerConfig{Addr: cfg.App.HTTPAddr, Handler: handler})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	return &App{
		cfg:    cfg,
		pairs:  pairs,
		engine: eng,
		server: server,
		mirror: mirror,
		declog: declog,
	}, nil
}

// Run 阻塞运行，直到 ctx 取消或任一子任务失败。
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.engine.Run(ctx)
	})
	group.Go(func() error {
		logger.Infof("HTTP 服务监听 %s", a.server.Addr())
		return a.server.Start(ctx)
	})
	if a.cfg.Pair.WatchReload {
		group.Go(func() error {
			return a.pairs.Watch(ctx)
		})
	}
	return group.Wait()
}

func (a *App) close() {
	if a.declog != nil {
		if err := a.declog.Close(); err != nil {
			logger.Warnf("关闭决策日志库失败: %v", err)
		}
	}
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			logger.Warnf("关闭 trade 镜像库失败: %v", err)
		}
	}
}
