// Package domain contains the core data model for the orchestrator:
// workflow definitions and their transitions, live workflow instances,
// saga definitions and instances, domain events, and the error taxonomy
// shared by every component.
//
// Types here are plain data. Behavior (validation aside) lives in the
// runtime; collaborator contracts live in pkg/ports.
package domain
