package discovery

// UsageGuide is the human-readable contract document for automation
// clients: field semantics, score ranges, and common workflows.
const UsageGuide = `# feedctl HTTP API usage guide

## Overview

feedctl ingests RSS/Atom feeds on independent schedules, deduplicates and
persists items, then runs bounded LLM classification (sentiment, impact,
optional geopolitical structure) over selectable subsets of items.

## Score ranges

- Sentiment overall score: -1 (very negative) to 1 (very positive).
- Sentiment/impact/market sub-scores: 0 to 1 unless noted otherwise.
- Geopolitical stability_score, economic_impact, diplomatic_impact.*: -1 to 1.
- Confidence fields: 0 (no confidence) to 1 (full confidence).

## Common workflows

1. Register a feed: POST /feeds with source_url, title, base_interval_minutes.
2. Trigger an out-of-band fetch: POST /feeds/{id}/fetch.
3. Browse ingested items: GET /items?feed_id=...&since_hours=...
4. Preview an analysis run before spending budget: POST /analysis/preview
   with a scope ({kind: LATEST|FEEDS|ITEMS|TIMERANGE, ...}) and params.
5. Start the run: POST /analysis/start with the same body; the response
   reports whether the run started immediately or was queued.
6. Poll run status: GET /analysis/runs/{id}; counters sum to total_items
   once the run reaches a terminal status.
7. Read the per-item result: GET /items/{id}/analysis.
8. In an emergency, POST /analysis/manager/emergency-stop halts new
   admissions without aborting runs already executing; POST
   /analysis/manager/resume clears it.

## Error shape

Every error response is {"error": {"kind": "...", "message": "...",
"details": {...}}}. kind is one of: validation, limit_exceeded,
not_found, conflict, system_halted, breaker_open, internal.
`
