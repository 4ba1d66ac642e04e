package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yok-tottii/ezdictate/internal/api"
	"github.com/yok-tottii/ezdictate/internal/appctx"
	"github.com/yok-tottii/ezdictate/internal/audio"
	"github.com/yok-tottii/ezdictate/internal/clipboard"
	"github.com/yok-tottii/ezdictate/internal/config"
	"github.com/yok-tottii/ezdictate/internal/events"
	"github.com/yok-tottii/ezdictate/internal/hotkey"
	"github.com/yok-tottii/ezdictate/internal/i18n"
	"github.com/yok-tottii/ezdictate/internal/logger"
	"github.com/yok-tottii/ezdictate/internal/notification"
	"github.com/yok-tottii/ezdictate/internal/output"
	"github.com/yok-tottii/ezdictate/internal/permissions"
	"github.com/yok-tottii/ezdictate/internal/pipeline"
	"github.com/yok-tottii/ezdictate/internal/server"
	"github.com/yok-tottii/ezdictate/internal/storage"
	"github.com/yok-tottii/ezdictate/internal/tray"
	"github.com/yok-tottii/ezdictate/internal/wizard"
)

const version = "0.4.0"

// App holds all application state
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	logger     *logger.Logger
	log        *slog.Logger
	store      *config.Store
	db         *storage.Store
	hub        *events.Hub
	translator *i18n.Translator

	pipeline   *pipeline.Orchestrator
	hotkeyMgr  *hotkey.Manager
	httpServer *server.Server
	trayMgr    *tray.Manager
	notifier   *notification.NotificationManager
	perms      *permissions.PermissionChecker
	wizard     *wizard.SetupWizard
}

func init() {
	// Tray, hotkey and permission calls need the main thread on macOS
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to the config file (.json or .yaml)")
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	flag.Parse()

	app, err := newApp(*configPath, *logLevel)
	if err != nil {
		log.Fatalf("EzDictate failed to start: %v", err)
	}
	defer app.shutdown()

	// Blocks until Quit
	app.trayMgr.Run()
}

func newApp(configPath, logLevel string) (*App, error) {
	store, err := config.NewStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := store.Current()

	appDir := config.AppDir()
	logCfg := logger.DefaultConfig(appDir)
	logCfg.Console = os.Stderr
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if lvl, err := logger.ParseLevel(logLevel); err == nil {
		logCfg.Level = lvl
	}
	lg, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slogger := lg.Slog()
	slogger.Info("EzDictate starting", "version", version, "config", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
		logger: lg,
		log:    slogger,
		store:  store,
		hub:    events.NewHub(),
		perms:  permissions.NewPermissionChecker(),
	}

	app.db, err = storage.Open(ctx, filepath.Join(appDir, "ezdictate.db"))
	if err != nil {
		app.shutdown()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	lang := i18n.Language(cfg.UILanguage)
	if !i18n.ValidateLanguage(cfg.UILanguage) {
		lang = i18n.DetectSystemLanguage()
	}
	app.translator, err = i18n.New(lang)
	if err != nil {
		app.shutdown()
		return nil, err
	}

	app.wizard, err = wizard.NewSetupWizard(configPath)
	if err != nil {
		slogger.Warn("setup wizard unavailable", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpClient := &http.Client{Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}}

	engine := audio.NewPortAudioEngine(slogger.With("component", "audio"))
	app.pipeline = pipeline.New(pipeline.Deps{
		Config:     store,
		Engine:     engine,
		Keyboard:   clipboard.NewRobot(),
		Detector:   appctx.Robot{},
		Store:      app.db,
		Emitter:    app.hub,
		Logger:     slogger.With("component", "pipeline"),
		Metrics:    pipeline.NewMetrics(registry),
		HTTPClient: httpClient,
	})

	app.hotkeyMgr = hotkey.New()
	app.notifier = notification.NewNotificationManager(config.AppName, app.translator)

	srvCfg := server.DefaultConfig()
	srvCfg.Metrics = registry
	srvCfg.Logger = slogger.With("component", "server")
	app.httpServer = server.New(srvCfg)

	api.New(api.Deps{
		Config:            store,
		Wizard:            app.wizard,
		Devices:           engine,
		Library:           app.db,
		Pipeline:          app.pipeline,
		Events:            app.hub,
		Permissions:       app.perms,
		Translator:        app.translator,
		HTTPClient:        httpClient,
		Logger:            slogger.With("component", "api"),
		OnHotkeyChanged:   app.rebindHotkey,
		OnSettingsChanged: app.settingsChanged,
	}).RegisterRoutes(app.httpServer.GetMux())

	app.trayMgr = tray.NewManager(tray.Config{
		Translator:    app.translator,
		Hotkey:        cfg.Hotkey,
		PolishEnabled: cfg.PolishEnabled,
		OutputMode:    output.ParseMode(cfg.OutputMode),
		OnReady:       app.onReady,
		OnSettings:    app.openSettings,
		OnDictation:   app.toggleDictation,
		OnPolish:      app.setPolish,
		OnOutputMode:  app.setOutputMode,
		OnQuit:        app.cancel,
	})

	return app, nil
}

// onReady runs once systray is up
func (a *App) onReady() {
	a.watchEvents()

	report := a.perms.Check()
	if !report.AllGranted {
		a.log.Warn("permissions missing", "missing", report.Missing)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("failed to start settings server", "error", err)
	}

	cfg := a.store.Current()
	if err := a.registerHotkey(cfg); err != nil {
		a.log.Error("failed to register hotkey", "hotkey", cfg.Hotkey, "error", err)
		a.notifier.HotkeyFailed(cfg.Hotkey)
	} else {
		a.notifier.Ready(cfg.Hotkey)
	}
	go a.pipeline.Serve(a.ctx, a.hotkeyMgr.Events())

	go a.pipeline.PreWarm(a.ctx)

	sigCtx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCtx.Done()
		stop()
		a.log.Info("shutting down")
		a.trayMgr.Quit()
	}()

	if a.wizard != nil && a.wizard.ShouldShowWizard() {
		a.log.Info("first run, opening setup")
		a.openSettings()
	}

	a.log.Info("EzDictate ready", "settings", a.httpServer.URL(), "hotkey", cfg.Hotkey)
}

// watchEvents wires the hub to the tray, notifications and the log
func (a *App) watchEvents() {
	trayEvents, _ := a.hub.Subscribe(16)
	go a.trayMgr.Watch(trayEvents)

	noteEvents, _ := a.hub.Subscribe(16)
	go a.notifier.Watch(noteEvents, func(err error) {
		a.log.Debug("notification failed", "error", err)
	})

	logEvents, _ := a.hub.Subscribe(64)
	go a.logEvents(logEvents)
}

func (a *App) logEvents(ch <-chan events.Event) {
	for ev := range ch {
		switch ev.Name {
		case events.PipelineState, events.PipelineTargetApp:
			a.log.Debug("event", "name", ev.Name, "payload", ev.Payload)
		case events.PipelineTiming:
			a.log.Info("session timing", "timing", ev.Payload)
		}
	}
}

func hotkeyConfig(cfg *config.Config) (hotkey.Config, error) {
	combo, err := hotkey.Parse(cfg.Hotkey)
	if err != nil {
		return hotkey.Config{}, err
	}
	return hotkey.Config{Combo: combo, Mode: hotkey.ParseMode(cfg.HotkeyMode)}, nil
}

func (a *App) registerHotkey(cfg *config.Config) error {
	hc, err := hotkeyConfig(cfg)
	if err != nil {
		return err
	}
	if conflicts := hotkey.CheckConflicts(hc.Combo); len(conflicts) > 0 {
		a.log.Warn("hotkey conflicts with a system shortcut", "hotkey", hc.Combo.String(), "conflict", conflicts[0].Name)
	}
	return a.hotkeyMgr.Register(hc)
}

func (a *App) rebindHotkey(hc hotkey.Config) error {
	if err := a.hotkeyMgr.Rebind(hc); err != nil {
		return err
	}
	a.log.Info("hotkey rebound", "hotkey", hc.Combo.String(), "mode", hc.Mode)
	return nil
}

// settingsChanged pushes a saved configuration into the running parts
func (a *App) settingsChanged(cfg *config.Config) {
	if lvl, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		a.logger.SetLevel(lvl)
	}
	a.trayMgr.SetLanguage(i18n.Language(cfg.UILanguage))
	a.trayMgr.SetHotkey(cfg.Hotkey)
	a.trayMgr.SetPolish(cfg.PolishEnabled)
	a.trayMgr.SetOutputMode(output.ParseMode(cfg.OutputMode))

	// Hotkey changes from the settings form rebind here; the hotkey
	// route has already rebound before saving.
	if hc, err := hotkeyConfig(cfg); err == nil && hc != a.hotkeyMgr.GetConfig() {
		if err := a.rebindHotkey(hc); err != nil {
			a.log.Error("failed to rebind hotkey", "hotkey", cfg.Hotkey, "error", err)
			a.notifier.HotkeyFailed(cfg.Hotkey)
		}
	}
}

func (a *App) toggleDictation() {
	if err := a.pipeline.Toggle(a.ctx); err != nil {
		a.log.Debug("toggle from tray failed", "error", err)
	}
}

func (a *App) setPolish(enabled bool) {
	a.update(map[string]interface{}{"polish_enabled": enabled})
}

func (a *App) setOutputMode(mode output.Mode) {
	a.update(map[string]interface{}{"output_mode": string(mode)})
}

func (a *App) update(updates map[string]interface{}) {
	if _, err := a.store.Update(updates); err != nil {
		a.log.Error("failed to save settings", "error", err)
	}
}

// openSettings opens the settings page in the default browser
func (a *App) openSettings() {
	if !a.httpServer.IsRunning() {
		a.log.Error("settings server is not running")
		return
	}
	url := a.httpServer.URL()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	go func() {
		if err := cmd.Run(); err != nil {
			a.log.Error("failed to open browser", "url", url, "error", err)
		}
	}()
}

func (a *App) shutdown() {
	a.cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(); err != nil {
			a.log.Error("failed to stop settings server", "error", err)
		}
	}
	if a.hotkeyMgr != nil {
		a.hotkeyMgr.Close()
	}
	if a.pipeline != nil && a.pipeline.State() == pipeline.Recording {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		a.pipeline.Stop(ctx)
		cancel()
	}
	a.hub.Close()
	if a.db != nil {
		a.db.Close()
	}
	a.log.Info("EzDictate stopped")
	a.logger.Close()
}
