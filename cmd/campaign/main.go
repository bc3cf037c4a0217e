package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"WalletCampaign/internal/campaign"
	"WalletCampaign/internal/config"
	"WalletCampaign/internal/ledger"
	"WalletCampaign/internal/logger"
	"WalletCampaign/internal/notifier"
	"WalletCampaign/internal/pacing"
	"WalletCampaign/internal/page"
	"WalletCampaign/internal/recorder"
	"WalletCampaign/internal/scheduler"
	"WalletCampaign/internal/secrets"
	"WalletCampaign/internal/store"
)

func main() {
	daemon := flag.Bool("daemon", false, "run on the cron schedule instead of a single pass")
	envFile := flag.String("env", ".env", "dotenv file with overrides")
	flag.Parse()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *daemon, log); err != nil {
		log.Error("campaign exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, daemon bool, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Secrets first: a wrong password aborts before anything touches the network.
	secretStore := secrets.NewStore(cfg.Secrets.EncryptedFile)
	keys, err := secrets.Unlock(secretStore, cfg.Secrets.PlainFile, os.Getenv("SECRETS_PASSWORD"), secrets.TerminalPrompt)
	if err != nil {
		return fmt.Errorf("unlock secrets: %w", err)
	}
	wallets, err := campaign.WalletsFromSecrets(keys)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	log.Info("wallets loaded", zap.Int("count", len(wallets)))

	st, err := store.Open(cfg.Campaign.StateFile, log.Named("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	var src page.Source
	if cfg.Page.Mock {
		src = page.NewMockSource()
	} else {
		src = page.NewHTTPSource(cfg.Page.BaseURL, cfg.Proxy, cfg.Page.CardTimeout, log.Named("page"))
	}
	log.Info("page source", zap.String("name", src.Name()))

	eth, err := ledger.NewEthClient(ctx, ledger.EthConfig{
		RPCURL:         cfg.Ledger.RPCURL,
		ChainID:        cfg.Ledger.ChainID,
		TokenContract:  cfg.Ledger.TokenContract,
		Recipient:      cfg.Ledger.Recipient,
		ConfirmTimeout: cfg.Ledger.ConfirmTimeout,
	}, log.Named("ledger"))
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer eth.Close()
	cached, err := ledger.NewCachedClient(eth, cfg.Ledger.BalanceCacheTTL)
	if err != nil {
		return fmt.Errorf("init balance cache: %w", err)
	}
	defer cached.Close()

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.Named("recorder"))
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var nt notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.NotifierEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log.Named("telegram"))
		nt = tn
	}

	pol := pacing.NewPolicy(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	pol.SpinMin, pol.SpinMax = cfg.Campaign.SpinDelayMin, cfg.Campaign.SpinDelayMax
	pol.IdleMin, pol.IdleMax = cfg.Campaign.IdleDelayMin, cfg.Campaign.IdleDelayMax

	runner := campaign.NewRunner(st, src, cached, pol, rec, nt, log.Named("campaign"))
	runner.TransferAmount = cfg.TransferAmount()
	runner.DepositAmount = cfg.DepositAmount()
	runner.MaxSpinsPerWallet = cfg.Campaign.MaxSpinsPerWallet

	if !daemon {
		_, err := runner.Run(ctx, wallets)
		return err
	}

	sched := scheduler.NewScheduler(ctx, runner, st, wallets, log.Named("scheduler"))
	if err := sched.RegisterAll(cfg.Schedule.RunCron, cfg.Schedule.SweepCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}
	if cfg.Schedule.RunOnStart {
		log.Info("run_on_start enabled, executing campaign now")
		go sched.RunNow()
	}

	log.Info("campaign daemon is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	return nil
}
