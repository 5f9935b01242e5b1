package profanity

// Base block list applied to every guild. Words with symbols are listed
// in their normalized form so they survive Normalize.
var baseBlock = []string{
	"arse",
	"arsehole",
	"asshat",
	"asshole",
	"bastard",
	"bitch",
	"bollocks",
	"bullshit",
	"crap",
	"crappy",
	"damn",
	"dammit",
	"dick",
	"dickhead",
	"douche",
	"douchebag",
	"dumbass",
	"fck",
	"feck",
	"goddamn",
	"jackass",
	"jerkoff",
	"piss off",
	"prick",
	"shat",
	"shit",
	"sht",
	"shitty",
	"slut",
	"twat",
	"wanker",
	"whore",
}

// Base allow list removes terms the block list would otherwise catch as
// substrings or that are harmless in ordinary conversation.
var baseAllow = []string{
	"bender",
	"bloody",
	"bugger",
	"bum",
	"bummer",
	"butt",
	"darn",
	"drunk",
	"dummy",
	"foobar",
	"fubar",
	"god",
	"hell",
	"hun",
	"jerk",
	"lmao",
	"lmfao",
	"omg",
	"poop",
	"potty",
	"prod",
	"psycho",
	"suck",
	"sucked",
	"sucking",
	"sucks",
	"toots",
	"turd",
	"ugly",
}
