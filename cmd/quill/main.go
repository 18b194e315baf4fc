package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/quillcms/quill/internal/auth"
	"github.com/quillcms/quill/internal/config"
	"github.com/quillcms/quill/internal/filter"
	"github.com/quillcms/quill/internal/handlers"
	"github.com/quillcms/quill/internal/mail"
	"github.com/quillcms/quill/internal/maintenance"
	"github.com/quillcms/quill/internal/store"
)

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 && os.Args[1] == "maintenance" {
		runMaintenance(cfg, os.Args[2:])
		return
	}

	serve(cfg)
}

func serve(cfg *config.Config) {
	db, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	users := auth.NewUserStore(db.DB())
	sessions := auth.NewSessionStore(db.DB())
	svc := auth.NewService(users, sessions)
	verifier := auth.NewVerifier(db.DB(), users)

	manager := maintenance.NewManager(maintenance.NewFileStore(cfg.MaintenanceFile))

	router, err := buildRouter(cfg, svc, verifier, manager)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	log.Printf("Starting Quill on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildRouter assembles the filter registry, handlers, and routes.
func buildRouter(cfg *config.Config, svc *auth.Service, verifier *auth.Verifier, manager *maintenance.Manager) (*filter.Router, error) {
	statsFilter := filter.NewStatsFilter()
	registry, err := buildRegistry(cfg, svc, manager, statsFilter)
	if err != nil {
		return nil, err
	}

	mailer := mail.NewMailer(mail.Config{
		Enabled:            cfg.SMTPEnabled,
		Host:               cfg.SMTPHost,
		Port:               cfg.SMTPPort,
		User:               cfg.SMTPUser,
		Password:           cfg.SMTPPassword,
		FromAddress:        cfg.SMTPFromAddress,
		FromName:           cfg.SMTPFromName,
		UseTLS:             cfg.SMTPUseTLS,
		UseSTARTTLS:        cfg.SMTPUseSTARTTLS,
		InsecureSkipVerify: cfg.SMTPInsecureVerify,
	})

	authHandler := handlers.NewAuthHandler(svc)
	verifyHandler := handlers.NewVerifyHandler(svc, verifier, mailer)
	maintHandler := handlers.NewMaintenanceHandler(manager)
	statsHandler := handlers.NewStatsHandler(statsFilter)

	router := filter.NewRouter(registry)

	// Maintenance gates everything; security headers and stats decorate
	// everything.
	base := []string{"maintenance", "security-headers", "stats"}
	router.HandleFunc("GET /login", append(base, "login-ratelimit"), authHandler.LoginPage)
	router.HandleFunc("POST /login", append(base, "login-ratelimit", "csrf"), authHandler.Login)
	router.HandleFunc("POST /logout", append(base, "auth-csrf"), authHandler.Logout)
	router.HandleFunc("GET /verify-email", append(base, "auth"), verifyHandler.Page)
	router.HandleFunc("POST /verify-email", append(base, "auth-csrf"), verifyHandler.Submit)
	router.HandleFunc("GET /members", append(base, "member-auth"), handlers.MemberHome)
	router.HandleFunc("GET /admin/maintenance", append(base, "auth-csrf"), maintHandler.Status)
	router.HandleFunc("GET /admin/stats", append(base, "auth-csrf"), statsHandler.Stats)
	router.HandleFunc("GET /health", nil, handlers.Health)

	return router, nil
}

// buildRegistry wires every filter the routes reference. Construction
// errors here are configuration errors and abort startup.
func buildRegistry(cfg *config.Config, svc *auth.Service, manager *maintenance.Manager, stats *filter.StatsFilter) (*filter.Registry, error) {
	authFilter, err := filter.NewAuthenticationFilter(svc, cfg.LoginURL)
	if err != nil {
		return nil, err
	}
	memberFilter, err := filter.NewMemberAuthenticationFilter(svc, cfg.LoginURL, cfg.VerifyEmailURL, cfg.RequireVerifiedEmail)
	if err != nil {
		return nil, err
	}
	csrfFilter, err := filter.NewCsrfFilter(svc)
	if err != nil {
		return nil, err
	}
	authCsrfFilter, err := filter.NewAuthCsrfFilter(svc, cfg.LoginURL)
	if err != nil {
		return nil, err
	}

	registry := filter.NewRegistry()
	registry.Register(filter.NewMaintenanceFilter(manager, cfg.MaintenanceView, cfg.TrustedProxies))
	registry.Register(authFilter)
	registry.Register(memberFilter)
	registry.Register(csrfFilter)
	registry.Register(authCsrfFilter)
	registry.Register(filter.NewSecurityHeadersFilter(cfg.SecurityHeaders))
	registry.Register(filter.NewLoginRateLimitFilter(&filter.RateLimitConfig{
		MaxAttempts: cfg.RateLimitMaxAttempts,
		Window:      cfg.RateLimitWindow,
		Enabled:     cfg.RateLimitEnabled,
	}))
	registry.Register(stats)
	return registry, nil
}

// runMaintenance drives the maintenance state from the command line:
// quill maintenance enable|disable|status.
func runMaintenance(cfg *config.Config, args []string) {
	manager := maintenance.NewManager(maintenance.NewFileStore(cfg.MaintenanceFile))

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: quill maintenance <enable|disable|status>")
		os.Exit(2)
	}

	switch args[0] {
	case "enable":
		fs := flag.NewFlagSet("maintenance enable", flag.ExitOnError)
		message := fs.String("message", "", "message shown on the maintenance page")
		allow := fs.String("allow", "", "comma-separated allow-listed IPs or CIDR blocks")
		retryAfter := fs.Int("retry-after", 0, "estimated downtime in seconds")
		by := fs.String("by", "", "operator enabling maintenance")
		_ = fs.Parse(args[1:])

		var allowed []string
		for _, ip := range strings.Split(*allow, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				allowed = append(allowed, ip)
			}
		}

		if !manager.Enable(*message, allowed, *retryAfter, *by) {
			fmt.Fprintln(os.Stderr, "failed to enable maintenance mode")
			os.Exit(1)
		}
		fmt.Println("maintenance mode enabled")

	case "disable":
		if !manager.Disable() {
			fmt.Fprintln(os.Stderr, "failed to disable maintenance mode")
			os.Exit(1)
		}
		fmt.Println("maintenance mode disabled")

	case "status":
		state := manager.Status()
		if state == nil {
			fmt.Println("maintenance mode is off")
			return
		}
		fmt.Printf("maintenance mode is on (since %s", state.EnabledAt)
		if state.EnabledBy != "" {
			fmt.Printf(", by %s", state.EnabledBy)
		}
		fmt.Println(")")
		fmt.Printf("  message: %s\n", state.Message)
		fmt.Printf("  allowed: %s\n", strings.Join(state.AllowedIPs, ", "))
		if state.RetryAfter > 0 {
			fmt.Printf("  retry after: %ds\n", state.RetryAfter)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown maintenance command %q\n", args[0])
		os.Exit(2)
	}
}
