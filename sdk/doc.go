// Provides an SDK for embedding padlocks directly in a program, without going through the lock broker.
package sdk
