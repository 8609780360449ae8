// internal/model/subscriber.go
package model

import "time"

type Subscriber struct {
	ID           string    `db:"id" json:"id"`
	Token        string    `db:"token" json:"token"`
	DomainName   string    `db:"domain_name" json:"domainName"`
	SubscribedAt time.Time `db:"subscribed_at" json:"subscribedAt"`
	UserAgent    string    `db:"user_agent" json:"userAgent,omitempty"`
}
