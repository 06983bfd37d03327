// Package ports defines the collaborator contracts the orchestrator core
// depends on: persistence (Repository), transport (EventBus), and pluggable
// behavior lookup (PolicyProvider).
//
// Adapters implementing these interfaces live under pkg/adapters. The core
// treats every collaborator as optional: a missing Repository means purely
// in-memory operation, a missing EventBus means outbound events are logged
// and dropped.
package ports
