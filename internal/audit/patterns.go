package audit

import "github.com/Mohsinsiddi/w3studio/internal/match"

// pattern is one risk group. alt* apply under the institutional override.
type pattern struct {
	category       string
	title          string
	description    string
	remediation    string
	severity       Severity
	altSeverity    Severity
	altRemediation string
	matcher        *match.Matcher
}

func group(category string, sev Severity, title, desc, fix string, fragments ...string) pattern {
	return pattern{
		category:    category,
		title:       title,
		description: desc,
		remediation: fix,
		severity:    sev,
		matcher:     match.New(match.Prefix, fragments...),
	}
}

func (p pattern) institutional(sev Severity, fix string) pattern {
	p.altSeverity = sev
	p.altRemediation = fix
	return p
}

const issuerNote = "Expected control for a regulated issuer; check the issuer's published governance and attestations."

// patterns are matched against state-changing function names only.
var patterns = []pattern{
	group("destructive", Critical,
		"Contract can be destroyed",
		"A privileged caller can remove the contract code and strand its balance.",
		"Remove self-destruct paths or gate them behind a timelocked multisig.",
		"selfdestruct", "destroy", "kill"),

	group("arbitrary-execution", Critical,
		"Arbitrary call execution",
		"Functions forward caller-supplied calldata to arbitrary targets.",
		"Restrict targets to an allow-list and require multisig approval.",
		"delegatecall", "functioncall", "arbitrarycall", "executecall", "exec", "multicallwithowner"),

	group("ownership", Medium,
		"Single-owner control",
		"Ownership can be transferred or renounced by the current owner.",
		"Hold ownership in a multisig and prefer two-step transfers.",
		"transferownership", "renounceownership", "setowner", "acceptownership").
		institutional(Info, issuerNote),

	group("admin", High,
		"Admin role can be reassigned",
		"An admin key can hand its powers to another account.",
		"Use a timelocked multisig as admin.",
		"changeadmin", "setadmin", "transferadmin", "setpendingadmin", "acceptadmin").
		institutional(Info, issuerNote),

	group("upgrade", High,
		"Upgradeable logic",
		"The implementation can be replaced, changing behaviour without notice.",
		"Put upgrades behind a timelock and announce them in advance.",
		"upgradeto", "upgrade", "setimplementation", "changeimplementation").
		institutional(Low, "Upgrades by a regulated issuer; monitor announcements before interacting."),

	group("initialization", Medium,
		"Public initializer",
		"Initializers left callable can let anyone seize configuration.",
		"Confirm the initializer is disabled on the deployed implementation.",
		"initialize", "reinitialize", "init"),

	group("emergency", High,
		"Emergency or guardian powers",
		"A guardian can withdraw funds or change the guardian outside normal flows.",
		"Scope emergency paths narrowly and log every use.",
		"emergencywithdraw", "emergencyexit", "setguardian", "changeguardian", "rescue"),

	group("pause", Medium,
		"Pausable transfers",
		"A privileged account can halt all activity.",
		"Document pause criteria and bound pause duration.",
		"pause", "unpause", "freeze", "unfreeze").
		institutional(Info, issuerNote),

	group("withdrawal", Medium,
		"Privileged fund withdrawal",
		"Functions move balances held by the contract.",
		"Check the access control on each withdrawal path.",
		"withdraw", "sweep", "drain", "claimfees", "skim"),

	group("roles", Medium,
		"Role management",
		"Roles can be granted and revoked, changing who holds each power.",
		"Review role holders and the admin of each role.",
		"grantrole", "revokerole", "renouncerole", "addminter", "removeminter", "configureminter", "updatemasterminter", "setminter").
		institutional(Info, issuerNote),

	group("supply", High,
		"Mint or burn",
		"Supply can be changed by privileged accounts.",
		"Cap minting and expose supply changes as events.",
		"mint", "burn").
		institutional(Info, issuerNote),

	group("lists", High,
		"Blocklist or allowlist",
		"Accounts can be blocked from using the contract.",
		"Publish the listing policy and the accounts that can change it.",
		"blacklist", "unblacklist", "blocklist", "denylist", "whitelist", "allowlist", "updateblacklister").
		institutional(Info, issuerNote),

	group("parameters", Low,
		"Mutable parameters",
		"Fees, limits or rates can be changed after deployment.",
		"Bound parameters on-chain and timelock changes.",
		"setfee", "updatefee", "settax", "setrate", "setmax", "setlimit", "setparam", "setconfig"),

	group("delegation", Low,
		"Delegation",
		"Voting power or rights can be delegated.",
		"Check delegation cannot bypass governance thresholds.",
		"delegate", "setdelegate"),

	group("oracle", High,
		"Oracle control",
		"Price sources can be replaced or prices set directly.",
		"Use decentralized feeds and bound price deviations.",
		"setoracle", "setpricefeed", "updateprice", "setprice", "setaggregator"),

	group("timelock", Info,
		"Timelock configuration",
		"The delay applied to privileged actions can be changed or actions cancelled.",
		"Check the minimum delay cannot be set to zero.",
		"setdelay", "settimelock", "queuetransaction", "canceltransaction", "executetransaction"),

	group("backend", Medium,
		"Backend signer control",
		"An off-chain signer or operator authorises actions.",
		"Document the signer's key custody and rotation.",
		"setsigner", "setbackend", "setrelayer", "setoperator", "setkeeper", "setvalidator", "settrustedforwarder"),
}
