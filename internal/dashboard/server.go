package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Serve runs the HTTP server and animator until ctx is cancelled
func Serve(ctx context.Context, addr string, svc *Service, speed Speed) error {
	hub := NewHub()
	anim := NewAnimator(svc, hub, speed)

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(svc, anim, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	animCtx, stopAnim := context.WithCancel(ctx)
	defer stopAnim()
	go anim.Run(animCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard listening on %s (animation: %s)", addr, speed)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("running server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down dashboard")
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
