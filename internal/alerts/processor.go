package alerts

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/hibiken/asynq"

	"github.com/festivo-app/festivo/internal/db"
)

var (
	client *asynq.Client
	server *asynq.Server
)

// Init starts the Asynq server and initializes a shared client.
func Init() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		if host := os.Getenv("REDIS_HOST"); host != "" {
			port := os.Getenv("REDIS_PORT")
			if port == "" {
				port = "6379"
			}
			redisAddr = host + ":" + port
		} else {
			redisAddr = "redis:6379"
			if os.Getenv("RUN_LOCAL") == "true" {
				redisAddr = "127.0.0.1:6379"
			}
		}
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskInAppNotification, handleInApp)
	mux.HandleFunc(TaskBookingRequest, handleBookingEmail)
	mux.HandleFunc(TaskBookingConfirmed, handleBookingEmail)
	mux.HandleFunc(TaskBookingCancelled, handleBookingEmail)
	mux.HandleFunc(TaskBookingCompleted, handleBookingEmail)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"notifications": 10,
			"emails":        5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr)
}

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

func handleInApp(ctx context.Context, t *asynq.Task) error {
	var p InAppPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	var ref any
	if p.Reference != "" {
		ref = p.Reference
	}
	_, err := db.Conn.Exec(ctx,
		`INSERT INTO notifications (user_id, type, title, body, reference)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.UserID, p.Type, p.Title, p.Body, ref,
	)
	if err != nil {
		log.Printf("[notify][ERROR] in-app insert failed: %v", err)
		return err
	}
	log.Printf("[notify] in-app sent -> user=%s type=%s", p.UserID, p.Type)
	fireRecipientChanged(p.UserID)
	return nil
}

func handleBookingEmail(_ context.Context, t *asynq.Task) error {
	var p BookingEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if p.Email == "" {
		return nil
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] %s send failed: %v", t.Type(), err)
		return err
	}
	log.Printf("[notify] %s sent -> booking=%s to=%s", t.Type(), p.BookingID, p.Email)
	return nil
}
