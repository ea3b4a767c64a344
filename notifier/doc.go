/*
Package notifier routes AWS Health events to per-service notification channels.
A Resolver turns an event into service identifiers, a Directory enumerates the channels that
follow the naming convention, and a Router ties both together and dispatches. Collaborators are
injected through the contract/health interfaces; the package holds no global state.
*/
package notifier
