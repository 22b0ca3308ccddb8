// Package api implements the HTTP surface of the clone backend.
//
// Route map:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  POST   /v1/ingest              →  ingest text           │
//	│  POST   /v1/ingest/url          →  ingest a web page     │
//	│  POST   /v1/query               →  streamed chat answer  │
//	│  POST   /v1/voice               →  voice round-trip      │
//	│  GET    /v1/persona             →  owner's profile       │
//	│  PUT    /v1/persona             →  upsert profile        │
//	│  GET    /v1/knowledge           →  list records          │
//	│  GET    /v1/knowledge/stats     →  record count          │
//	│  DELETE /v1/knowledge/{id}      →  delete a record       │
//	│  GET    /health                 →  liveness probe        │
//	│  GET    /ready                  →  readiness probe       │
//	└─────────────────────────────────────────────────────────┘
//
// The pipeline endpoints (ingest, query, voice) keep the dashboard's wire
// contract: every failure is a 400 with a flat {"error": message} body, and
// CORS is fully permissive. The management endpoints (persona, knowledge)
// are newer surface and use conventional status codes.
package api
