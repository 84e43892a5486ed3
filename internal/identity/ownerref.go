package identity

// refKind 所有权引用的类别
type refKind int

const (
	refHashed refKind = iota
	refLegacy
)

// OwnerRef 是标识所有者的带标签变体：派生标识符或旧版原始值。
// 旧版原始值仅用于兼容历史存储路径，绝不对外展示或重新传输。
type OwnerRef struct {
	kind  refKind
	value string
}

// HashedOwner 构造派生标识符引用
func HashedOwner(ownerID string) OwnerRef {
	return OwnerRef{kind: refHashed, value: ownerID}
}

// LegacyOwner 构造旧版原始值引用
func LegacyOwner(raw string) OwnerRef {
	return OwnerRef{kind: refLegacy, value: raw}
}

// ClassifyOwner 按形状归类：16 位十六进制视为派生标识符，其余一律按旧版处理
func ClassifyOwner(s string) OwnerRef {
	if IsValidOwnerID(s) {
		return HashedOwner(s)
	}
	return LegacyOwner(s)
}

// IsLegacy 是否为旧版原始值
func (r OwnerRef) IsLegacy() bool {
	return r.kind == refLegacy
}

// OwnerID 返回派生标识符；旧版引用返回空串
func (r OwnerRef) OwnerID() string {
	if r.kind == refHashed {
		return r.value
	}
	return ""
}

// PathPrefix 返回存储路径前缀。旧版引用也要可读，历史路径以原始值为前缀。
func (r OwnerRef) PathPrefix() string {
	return r.value
}

// String 日志安全的展示形式，旧版原始值始终脱敏
func (r OwnerRef) String() string {
	if r.kind == refLegacy {
		return "legacy:***"
	}
	return r.value
}
