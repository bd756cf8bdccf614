// Package providers defines the provider-agnostic contract between the
// failover core and backend LLM adapters.
//
// The core never talks to a vendor SDK directly. It depends on the
// Provider interface, the request and response types in this package, and
// the error taxonomy: adapters surface failures as the typed errors
// defined here, and a Classifier maps them to the categories the failover
// engine acts on (retry the next key, mitigate the prompt, or move to the
// next model).
package providers
