package engine

// LLM prompt templates: data only, no logic.

// classifyPrompt asks for a single JSON verdict about one video.
// Args: title, channel, description snippet.
const classifyPrompt = `Only output JSON. Decide if the video is clearly promoting copyright infringement (not just discussing it).

Video title: "%s"
Channel: %s
Description (snippet): "%s"

Rules:
- Only mark as infringing if it is CLEAR promotion/availability (e.g., download/undetected/free/link/discord/injector/loader/bypass) of cheats or pirated media.
- Do NOT mark as infringing for news, discussions, tutorials against cheating, controller settings, montages, highlights, or exposure content.
- If ambiguous, set isLikelyInfringing=false with low confidence.

Return JSON with:
{
  "isLikelyInfringing": boolean,
  "confidenceScore": 0-100,
  "reasons": ["max 3 very short reasons"],
  "copyrightType": "movie|tvshow|music|game|software|other|none",
  "fairUseFactors": []
}`

// classifySystem pins the response format for providers that honour a system turn.
const classifySystem = `You are a copyright triage assistant. Respond with a single JSON object and nothing else.`
