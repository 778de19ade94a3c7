package relay

// MessageKind 消息形态标签
type MessageKind int

const (
	KindUnsupported MessageKind = iota // 无文本也无可识别媒体
	KindText
	KindPhoto
	KindVideo
	KindDocument
)

// String 返回形态名称（用于日志）
func (k MessageKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	default:
		return "unsupported"
	}
}

// SourceMessage 源频道中一条消息的瞬时视图
// 每次投递尝试前重新抓取，不跨 tick 缓存。
type SourceMessage struct {
	ID      int64       // 源频道内的消息 ID
	ChatID  int64       // 源频道 ID
	Kind    MessageKind // 形态标签
	FileID  string      // 媒体消息的文件引用，文本消息为空
	Text    string      // 纯文本消息的正文
	Caption string      // 媒体消息的原始文案
}

// SendPlan 已解析好的发送参数
// 由 Render 生成，可直接交给平台客户端投递。
type SendPlan struct {
	Kind    MessageKind
	FileID  string // 媒体引用，原样转发，不做转码
	Text    string // KindText 的正文；为空表示无内容可发
	Caption string // 媒体消息的文案；为空表示不携带文案
}

// Empty 该计划是否没有任何可发送内容
// 文本消息在丢弃原文且没有自定义文案时会出现这种情况，投递按无操作处理。
func (p SendPlan) Empty() bool {
	return p.Kind == KindText && p.Text == ""
}

// Render 将源消息与文案策略转换为发送参数
// 纯函数：相同输入永远产生相同输出，无副作用。
func Render(msg *SourceMessage, customCaption string, removeOriginal bool) SendPlan {
	switch msg.Kind {
	case KindPhoto, KindVideo, KindDocument:
		return SendPlan{
			Kind:    msg.Kind,
			FileID:  msg.FileID,
			Caption: composeCaption(msg.Caption, customCaption, removeOriginal),
		}
	case KindText:
		return SendPlan{
			Kind: KindText,
			Text: composeCaption(msg.Text, customCaption, removeOriginal),
		}
	default:
		return SendPlan{Kind: KindUnsupported}
	}
}

// composeCaption 文案合成规则
// removeOriginal 为 true 时只保留自定义文案；否则自定义文案换行追加在原文之后。
func composeCaption(original, custom string, removeOriginal bool) string {
	effective := ""
	if !removeOriginal {
		effective = original
	}
	if custom != "" {
		if effective != "" {
			effective += "\n" + custom
		} else {
			effective = custom
		}
	}
	return effective
}
