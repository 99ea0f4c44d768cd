package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dirtcrusher/cansim/can"
	"github.com/dirtcrusher/cansim/internal/metrics"
)

const (
	mqttConnectTimeout = 5 * time.Second
	mqttQueueSize      = 256
)

// framePayload is the JSON shape published per received frame.
type framePayload struct {
	ID       uint32 `json:"id"`
	Extended bool   `json:"extended,omitempty"`
	Remote   bool   `json:"remote,omitempty"`
	Error    bool   `json:"error,omitempty"`
	DLC      uint8  `json:"dlc"`
	Data     string `json:"data"`
}

// publisher funnels frame publishes through a single goroutine with a
// bounded queue; a full queue drops the frame rather than stalling the
// consumer loop.
type publisher struct {
	cli   mqtt.Client
	topic string
	ch    chan can.Frame
	done  chan struct{}
}

func newPublisher(broker, topic, clientID string) (*publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	cli := mqtt.NewClient(opts)
	tok := cli.Connect()
	if !tok.WaitTimeout(mqttConnectTimeout) {
		return nil, errors.New("mqtt connect timeout")
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	p := &publisher{
		cli:   cli,
		topic: topic,
		ch:    make(chan can.Frame, mqttQueueSize),
		done:  make(chan struct{}),
	}
	go p.loop()
	return p, nil
}

// Publish enqueues a frame for asynchronous publishing, dropping when the
// queue is full.
func (p *publisher) Publish(f can.Frame) {
	select {
	case p.ch <- f:
	default:
		metrics.IncError(metrics.ErrMQTTOver)
	}
}

func (p *publisher) loop() {
	defer close(p.done)
	for f := range p.ch {
		payload, err := json.Marshal(framePayload{
			ID:       f.ID,
			Extended: f.IDE,
			Remote:   f.RTR,
			Error:    f.ERR,
			DLC:      f.DLC,
			Data:     hex.EncodeToString(f.Data[:f.DLC]),
		})
		if err != nil {
			continue
		}
		tok := p.cli.Publish(p.topic, 0, false, payload)
		tok.Wait()
		if tok.Error() != nil {
			metrics.IncError(metrics.ErrMQTTPublish)
			continue
		}
		metrics.IncMQTTTx()
	}
}

// Close stops the worker, waits for it and disconnects from the broker.
func (p *publisher) Close() {
	close(p.ch)
	<-p.done
	p.cli.Disconnect(250)
}
