package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"deskglue/internal/eventbus"
	"deskglue/internal/logging"
	"deskglue/internal/ui"
)

// runInteractive starts the filter panel TUI
func runInteractive(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	// the logger is configured by the file, so config comes first
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to bubbletea; logs go to the file only
	logCfg := cfg.Logging
	logCfg.Output = "file"
	logger, closeLog, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	logger.Info("starting", zap.String("backend", cfg.Backend.Kind))

	bus := eventbus.New(logger)
	defer bus.Close()

	backend, err := newBackend(cfg, logger)
	if err != nil {
		logger.Error("backend unavailable", zap.Error(err))
		return err
	}

	uiModel, err := ui.NewModel(cfg, bus, backend, ui.Options{Logger: logger})
	if err != nil {
		return err
	}
	if err := uiModel.Start(ctx); err != nil {
		return err
	}
	defer uiModel.Close()

	p := tea.NewProgram(uiModel, tea.WithAltScreen(), tea.WithContext(ctx))
	uiModel.SetProgram(p)

	// Bus handlers must not block on the program, so events pass through a buffer
	eventChan := make(chan tea.Msg, 100)
	stopForward := ui.Forward(bus, func(msg tea.Msg) {
		select {
		case eventChan <- msg:
		default:
			logger.Warn("event channel full, dropping event")
		}
	})
	go func() {
		for {
			select {
			case msg := <-eventChan:
				p.Send(msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	_, runErr := p.Run()
	stopForward()

	if runErr != nil && ctx.Err() == nil {
		logger.Error("program failed", zap.Error(runErr))
		return fmt.Errorf("error running program: %w", runErr)
	}
	logger.Info("exited")
	return nil
}
