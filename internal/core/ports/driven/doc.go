// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
//   - TokenStore: Durable per-provider credential persistence
//   - VerifierStore: Ephemeral PKCE verifier during an interactive login
//   - OAuthFlow: Code exchange, refresh and userinfo for one provider
//   - InteractiveGrant: User-mediated consent (browser + loopback redirect)
//   - ContentGenerator: Schema-constrained generation call for one API key
//   - TaskWriter / TaskListReader: Destination create and list calls
//   - Limiter: Destination request pacing
//   - ConfigStore: Application configuration
//   - PromptStore: User-editable generation prompts
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
