/*
Package rabbitmq mirrors health notifications onto a RabbitMQ topic exchange.
Each channel maps to a routing key named after the channel, and the package includes an
auto-reconnecting publisher that waits for broker confirms.
*/
package rabbitmq
