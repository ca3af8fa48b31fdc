package render

import "github.com/xmppscan/xmppscan/pkg/types"

type columnInfo struct {
	title       string
	description string
}

// Disco category/type pairs follow the XMPP registrar. Pure MUC components
// are reported by the discoverer as conference/x-muc.
var columnInfos = map[types.ServiceKind]columnInfo{
	{Category: "conference", Type: "x-muc"}:  {"MUC", "MultiUser Chat"},
	{Category: "conference", Type: "irc"}:    {"IRC", "Internet Relay Chat Gateway"},
	{Category: "gateway", Type: "twitter"}:   {"Twitter", "Twitter Gateway"},
	{Category: "gateway", Type: "gadu-gadu"}: {"GG", "Gadu Gadu gateway"},
	{Category: "gateway", Type: "gtalk"}:     {"GTalk", "Google Talk gateway"},
	{Category: "gateway", Type: "whatsapp"}:  {"WA", "WhatsApp gateway"},
	{Category: "gateway", Type: "icq"}:       {"ICQ", "ICQ gateway"},
	{Category: "gateway", Type: "telegram"}:  {"Telegram", "Telegram gateway"},
	{Category: "gateway", Type: "sms"}:       {"SMS", "Short Message Service gateway"},
	{Category: "gateway", Type: "smtp"}:      {"email", "SMTP gateway"},
	{Category: "gateway", Type: "skype"}:     {"Skype", "Skype gateway"},
	{Category: "gateway", Type: "xmpp"}:      {"XMPP", "Jabber/XMPP gateway"},
	{Category: "gateway", Type: "facebook"}:  {"FB", "Facebook gateway"},
	{Category: "directory", Type: "user"}:    {"User Directory", ""},
	{Category: "pubsub", Type: "service"}:    {"PubSub", "Publish-Subscribe"},
	{Category: "pubsub", Type: "pep"}:        {"PEP", "Personal Eventing Protocol"},
	{Category: "store", Type: "file"}:        {"File Storage", ""},
	{Category: "headline", Type: "newmail"}:  {"Mail Alerts", ""},
	{Category: "proxy", Type: "bytestreams"}: {"Proxy", "File transfer proxy"},
}

// ColumnTitle returns the header text and tooltip for kind. Unknown kinds
// are titled by their type.
func ColumnTitle(kind types.ServiceKind) (title, description string) {
	if info, ok := columnInfos[kind]; ok {
		return info.title, info.description
	}
	return kind.Type, ""
}
