package chat

import (
	"context"
	"regexp"
	"strings"

	"contract_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// UserDirectory 按用户名或用户 ID 精确查找用户
type UserDirectory interface {
	// LookupByUsernameOrId 找不到时返回 ok=false 且 err=nil
	LookupByUsernameOrId(ctx context.Context, token string) (m Mention, ok bool, err error)
}

var (
	// @word 与 #word 前面必须是行首或非单词字符
	mentionPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])@([\p{L}\p{N}_]+)`)
	hashtagPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])#([\p{L}\p{N}_]+)`)
)

// directives 指令词表，匹配时不区分大小写
var directives = map[string]string{
	"ai":       SpecialAIRequest,
	"bot":      SpecialAIRequest,
	"all":      SpecialBroadcastAll,
	"everyone": SpecialBroadcastAll,
}

// Parser 消息标签解析器
type Parser struct {
	dir UserDirectory
}

// NewParser 创建解析器
func NewParser(dir UserDirectory) *Parser {
	return &Parser{dir: dir}
}

// Parse 解析 @ 提及、特殊指令和话题
// 每个 @word 只归入一类，指令优先于用户匹配，未匹配的 @word 直接丢弃
// 提及按出现顺序保留，不去重
// broadcast_all 在任何作用域都会被解析出来，是否广播由投递方按作用域决定
func (p *Parser) Parse(ctx context.Context, content string, scope Scope) TagSet {
	var tags TagSet

	for _, match := range mentionPattern.FindAllStringSubmatch(content, -1) {
		word := match[1]
		if special, ok := directives[strings.ToLower(word)]; ok {
			tags.Special = append(tags.Special, special)
			continue
		}
		if p.dir == nil {
			continue
		}
		m, ok, err := p.dir.LookupByUsernameOrId(ctx, word)
		if err != nil {
			zap.L().Warn("mention lookup failed",
				zap.String("token", word),
				zap.String("scope", string(scope)),
				zap.Int("code", errorx.GetCode(err)),
				zap.Error(err),
			)
			continue
		}
		if ok {
			tags.Mentions = append(tags.Mentions, m)
		}
	}

	for _, match := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		tags.Hashtags = append(tags.Hashtags, match[1])
	}
	return tags
}

// StripDirectives 去掉内容中的指令并压缩空白
func StripDirectives(content string) string {
	var b strings.Builder
	last := 0
	for _, loc := range mentionPattern.FindAllStringSubmatchIndex(content, -1) {
		// loc[2]:loc[3] 是 @ 之后的单词
		if _, ok := directives[strings.ToLower(content[loc[2]:loc[3]])]; !ok {
			continue
		}
		b.WriteString(content[last : loc[2]-1])
		last = loc[3]
	}
	b.WriteString(content[last:])
	return strings.Join(strings.Fields(b.String()), " ")
}
