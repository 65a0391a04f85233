// Package commands parses raw RSP command payloads into typed commands.
//
// Command is a closed union: every concrete type belongs to exactly one
// protocol extension family. Parsing depends on the extensions the target
// supports; a packet for an absent extension, or one that does not parse, is
// returned as Unknown so the stub can answer with an empty response.
package commands

import (
	"bytes"
)

// Extensions is the set of optional families a target implements.
type Extensions uint32

const (
	ExtResume Extensions = 1 << iota
	ExtSingleRegisterAccess
	ExtBreakpoints
	ExtCatchSyscalls
	ExtExtendedMode
	ExtMonitorCmd
	ExtSectionOffsets
	ExtReverseCont
	ExtReverseStep
	ExtMemoryMap
	ExtHostIo
	ExtExecFile
	ExtAuxv
	ExtTargetDescriptionXML

	extBase Extensions = 0
)

func (e Extensions) Has(x Extensions) bool {
	return e&x == x
}

type Command interface {
	command()
}

// Unknown is a packet the stub does not understand.
type Unknown struct {
	Raw []byte
}

func (Unknown) command() {}

type parseFunc func(body []byte) (Command, error)

type entry struct {
	prefix string
	// exact entries only match when the payload is the prefix itself
	exact bool
	ext   Extensions
	parse parseFunc
}

// Multi-character prefixes must come before the single character commands
// they would otherwise be shadowed by.
var table = []entry{
	{prefix: "QStartNoAckMode", exact: true, ext: extBase, parse: noBody(QStartNoAckMode{})},
	{prefix: "qSupported", ext: extBase, parse: parseQSupported},
	{prefix: "qXfer:features:read:", ext: ExtTargetDescriptionXML, parse: parseQXferFeatures},
	{prefix: "qXfer:memory-map:read:", ext: ExtMemoryMap, parse: parseQXferMemoryMap},
	{prefix: "qXfer:exec-file:read:", ext: ExtExecFile, parse: parseQXferExecFile},
	{prefix: "qXfer:auxv:read:", ext: ExtAuxv, parse: parseQXferAuxv},
	{prefix: "qAttached", ext: extBase, parse: parseQAttached},
	{prefix: "qC", exact: true, ext: extBase, parse: noBody(QC{})},
	{prefix: "qfThreadInfo", exact: true, ext: extBase, parse: noBody(QfThreadInfo{})},
	{prefix: "qsThreadInfo", exact: true, ext: extBase, parse: noBody(QsThreadInfo{})},
	{prefix: "qOffsets", exact: true, ext: ExtSectionOffsets, parse: noBody(SectionOffsets{})},
	{prefix: "qRcmd,", ext: ExtMonitorCmd, parse: parseQRcmd},
	{prefix: "QCatchSyscalls:", ext: ExtCatchSyscalls, parse: parseQCatchSyscalls},
	{prefix: "QDisableRandomization:", ext: ExtExtendedMode, parse: parseQDisableRandomization},
	{prefix: "QEnvironmentHexEncoded:", ext: ExtExtendedMode, parse: parseQEnvironmentHexEncoded},
	{prefix: "QEnvironmentUnset:", ext: ExtExtendedMode, parse: parseQEnvironmentUnset},
	{prefix: "QEnvironmentReset", exact: true, ext: ExtExtendedMode, parse: noBody(QEnvironmentReset{})},
	{prefix: "QSetWorkingDir:", ext: ExtExtendedMode, parse: parseQSetWorkingDir},
	{prefix: "QStartupWithShell:", ext: ExtExtendedMode, parse: parseQStartupWithShell},
	{prefix: "vCont?", exact: true, ext: ExtResume, parse: noBody(VContQuery{})},
	{prefix: "vCont;", ext: ExtResume, parse: parseVCont},
	{prefix: "vAttach;", ext: ExtExtendedMode, parse: parseVAttach},
	{prefix: "vRun;", ext: ExtExtendedMode, parse: parseVRun},
	{prefix: "vKill;", ext: ExtExtendedMode, parse: parseVKill},
	{prefix: "vFile:", ext: ExtHostIo, parse: parseVFile},
	{prefix: "bc", exact: true, ext: ExtReverseCont, parse: noBody(ReverseCont{})},
	{prefix: "bs", exact: true, ext: ExtReverseStep, parse: noBody(ReverseStep{})},
	{prefix: "?", exact: true, ext: extBase, parse: noBody(QuestionMark{})},
	{prefix: "g", exact: true, ext: extBase, parse: noBody(ReadRegisters{})},
	{prefix: "G", ext: extBase, parse: parseWriteRegisters},
	{prefix: "m", ext: extBase, parse: parseReadAddrs},
	{prefix: "M", ext: extBase, parse: parseWriteAddrs},
	{prefix: "X", ext: extBase, parse: parseXUpcase},
	{prefix: "k", exact: true, ext: extBase, parse: noBody(Kill{})},
	{prefix: "D", ext: extBase, parse: parseDetach},
	{prefix: "H", ext: extBase, parse: parseSetThread},
	{prefix: "T", ext: extBase, parse: parseThreadAlive},
	{prefix: "p", ext: ExtSingleRegisterAccess, parse: parseReadRegister},
	{prefix: "P", ext: ExtSingleRegisterAccess, parse: parseWriteRegister},
	{prefix: "Z", ext: ExtBreakpoints, parse: parseBreakpoint(true)},
	{prefix: "z", ext: ExtBreakpoints, parse: parseBreakpoint(false)},
	{prefix: "c", ext: ExtResume, parse: parseContinue},
	{prefix: "C", ext: ExtResume, parse: parseContinueWithSignal},
	{prefix: "s", ext: ExtResume, parse: parseStep},
	{prefix: "S", ext: ExtResume, parse: parseStepWithSignal},
	{prefix: "!", exact: true, ext: ExtExtendedMode, parse: noBody(ExclamationMark{})},
	{prefix: "R", ext: ExtExtendedMode, parse: noBody(Restart{})},
}

func noBody(c Command) parseFunc {
	return func([]byte) (Command, error) { return c, nil }
}

// Parse decodes payload into a Command. Families not in ext, unrecognized
// packets and malformed packets all come back as Unknown.
func Parse(payload []byte, ext Extensions) Command {
	for _, e := range table {
		if !bytes.HasPrefix(payload, []byte(e.prefix)) {
			continue
		}
		if e.exact && len(payload) != len(e.prefix) {
			continue
		}
		if !ext.Has(e.ext) {
			break
		}
		cmd, err := e.parse(payload[len(e.prefix):])
		if err != nil {
			break
		}
		return cmd
	}
	return Unknown{Raw: payload}
}
