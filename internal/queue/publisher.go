package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/ouvidoria/internal/report"
)

const (
	exchangeName = "reports"

	routingKeyCreated = "report.created"
	routingKeyUpdated = "report.updated"

	publishTimeout = 5 * time.Second
)

// ReportEvent é o payload publicado para colaboradores externos
// (dashboards, fan-out de e-mail) a cada mudança relevante de um relato.
type ReportEvent struct {
	ReportID   string    `json:"report_id"`
	OwnerID    string    `json:"owner_id"`
	CategoryID int16     `json:"category_id"`
	Status     string    `json:"status"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publica eventos de relato em um exchange direto. Publicação é
// melhor-esforço: falhas são logadas e nunca propagadas ao ciclo de vida.
type Publisher struct {
	ch *amqp.Channel
}

// Connect abre conexão e canal com o broker e declara o exchange.
func Connect(uri string) (*amqp.Connection, *Publisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp exchange: %w", err)
	}

	return conn, &Publisher{ch: ch}, nil
}

// ReportCreated publica evento de abertura de relato.
func (p *Publisher) ReportCreated(rep *report.Report) {
	p.publish(routingKeyCreated, rep)
}

// ReportUpdated publica evento de mudança de status ou atribuição.
func (p *Publisher) ReportUpdated(rep *report.Report) {
	p.publish(routingKeyUpdated, rep)
}

func (p *Publisher) publish(routingKey string, rep *report.Report) {
	event := ReportEvent{
		ReportID:   rep.ID.String(),
		OwnerID:    rep.OwnerID.String(),
		CategoryID: rep.CategoryID,
		Status:     string(rep.Status),
		Title:      rep.Title,
		OccurredAt: time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("evento de relato não serializado")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		log.Warn().Err(err).
			Str("routing_key", routingKey).
			Str("report_id", event.ReportID).
			Msg("evento de relato não publicado")
	}
}
