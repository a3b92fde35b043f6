package engine

// Term lists used by the pre-filter and the classifier guardrail.
// All entries are lowercase substrings matched against lowercased title+description.
//
// The triage lists feed the cheap pre-filter score. The guardrail lists decide whether a
// model verdict is allowed to stand, so they are tuned separately and must stay a
// distinct family even where entries overlap.

// --- Triage (pre-filter) ---

// infringementKeywords add +1 each to the infringement score.
var infringementKeywords = []string{
	"full movie", "full film", "entire movie", "complete movie",
	"hack", "cheat", "aimbot", "wallhack", "exploit", "mod menu",
	"cracked", "pirated", "leaked", "unreleased",
	"free download", "no survey",
	"working 2024", "working 2025", "100% working",
	"undetected", "bypass", "unlimited", "generator",
	"free coins", "free gems", "free vbucks",
	"discord", "injector", "loader", "key auth", "spoof",
}

// distributionIndicators add +3 each: download links, invites, file hosts, shorteners.
var distributionIndicators = []string{
	"download", "free", "link",
	"discord", "telegram", "t.me",
	"injector", "loader", "bypass", "keyauth", "key auth",
	"pastebin", "mediafire", "mega", "mega.nz", "gofile",
	"google drive", "drive.google.com",
	"bit.ly", "tinyurl", "goo.gl",
	"crack", "cracked",
}

// legitimateKeywords add +1 each to the legitimate score.
var legitimateKeywords = []string{
	"official", "trailer", "review", "reaction", "commentary",
	"tutorial", "guide", "tips", "tricks",
	"gameplay", "walkthrough", "let's play", "highlights", "montage",
	"news", "update", "patch notes", "season",
	"exposed", "expose", "banned", "ban", "report",
	"settings", "controller", "creative", "map code",
}

// --- Guardrail (classifier post-processing) ---

// promotionTerms signal that a video offers or advertises the infringing material itself.
var promotionTerms = []string{
	"download", "undetected", "free", "link",
	"discord", "telegram", "injector", "loader", "bypass",
	"cheat menu", "aimbot", "esp", "wallhack",
	"crack", "cracked", "script", "cfg", "paste",
}

// legitimateContextTerms signal discussion, exposure or unrelated gameplay content.
var legitimateContextTerms = []string{
	"expose", "exposed", "ban", "banned", "caught", "hunter", "counter",
	"report", "how to report", "settings", "controller settings",
	"news", "update", "montage", "highlights", "clip",
	"creative", "map code", "gamemode",
}

// shortsMarkers flag short-form clips by text when duration is unknown or misleading.
// Matched against the space-padded lowercase text.
var shortsMarkers = []string{"#shorts", " shorts "}
