package chat

import "errors"

var (
	// ErrGatewayDisabled is returned when the gateway is off or has no API key
	ErrGatewayDisabled = errors.New("chat: gateway not configured")

	// ErrGatewayStatus is returned for non-2xx gateway responses
	ErrGatewayStatus = errors.New("chat: gateway returned non-success status")

	// ErrGatewayUnusable is returned when the gateway body has no usable content
	ErrGatewayUnusable = errors.New("chat: gateway response unusable")

	// ErrCacheMiss is returned by ReplyCache.Get when nothing is stored
	ErrCacheMiss = errors.New("chat: reply cache miss")
)
