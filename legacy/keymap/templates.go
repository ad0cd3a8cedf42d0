package keymap

// Templates maps a lowercase built-in protocol identifier to its
// canonical IRP source. These are the well-known consumer-IR protocols
// any remote-control keymap is likely to name; a keymap section naming
// anything else fails Compile with ErrUnknownProtocol rather than
// attempting to infer a lowering.
var Templates = map[string]string{
	"nec":     "{38.4k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,^108m)(16,-4,1,^108m)*[D:0..255,S:0..255,F:0..255]",
	"nec1":    "{38.4k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,^108m)[D:0..255,S:0..255,F:0..255]",
	"nec2":    "{38.4k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,(16,-4,1,^108m)*)[D:0..255,S:0..255,F:0..255]",
	"rc5":     "{36k,msb,889}<1,-1|-1,1>((1,~F:1:6,T:1,D:5,F:6,^114m)*)[D:0..31,F:0..127,T@:0..1=0]",
	"rc5x":    "{36k,msb,889}<1,-1|-1,1>((1,~F:1:6,T:1,D:5,F:6,-4,S:6,^114m)*)[D:0..31,S:0..63,F:0..127,T@:0..1=0]",
	"rc6":     "{36k,444,msb}<-1,1|1,-1>((6,-2,1:1,0:3,<-2,2|2,-2>(T:1),D:8,F:8,^107m)*)[D:0..255,F:0..255,T@:0..1=0]",
	"sony12":  "{40k,600,msb}<1,-1|2,-1>(4,-1,F:7,D:5,^45m)*[D:0..31,F:0..127]",
	"sony15":  "{40k,600,msb}<1,-1|2,-1>(4,-1,F:7,D:8,^45m)*[D:0..255,F:0..127]",
	"sony20":  "{40k,600,msb}<1,-1|2,-1>(4,-1,F:7,D:5,S:8,^45m)*[D:0..31,S:0..255,F:0..127]",
	"jvc":     "{38k,525}<1,-1|1,-3>(16,-8,D:8,F:8,1,-45,(16,-8,D:8,F:8,1,-45)*)[D:0..255,F:0..255]",
	"samsung36": "{38k,564}<1,-1|1,-3>(8,-8,D:8,S:8,F:8,~F:8,1,-173)[D:0..255,S:0..255,F:0..255]",
}
