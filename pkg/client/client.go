package client

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/api/calendar/v3"
)

type Client struct {
	Mongo    *mongo.Client
	Calendar *calendar.Service
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) GracefulShutdown() {
	if c.Mongo != nil {
		_ = c.Mongo.Disconnect(context.Background())
	}
}
