package sim

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"gni.dev/gdbstub/internal/auxv"
	"gni.dev/gdbstub/internal/target"
)

const targetXML = `<?xml version="1.0"?>
<!DOCTYPE target SYSTEM "gdb-target.dtd">
<target version="1.0">
  <feature name="org.gnu.gdb.sim.core">
    <reg name="r0" bitsize="64" regnum="0"/>
    <reg name="r1" bitsize="64"/>
    <reg name="r2" bitsize="64"/>
    <reg name="r3" bitsize="64"/>
    <reg name="r4" bitsize="64"/>
    <reg name="r5" bitsize="64"/>
    <reg name="r6" bitsize="64"/>
    <reg name="r7" bitsize="64"/>
    <reg name="r8" bitsize="64"/>
    <reg name="r9" bitsize="64"/>
    <reg name="r10" bitsize="64"/>
    <reg name="r11" bitsize="64"/>
    <reg name="r12" bitsize="64"/>
    <reg name="r13" bitsize="64"/>
    <reg name="r14" bitsize="64"/>
    <reg name="r15" bitsize="64"/>
    <reg name="pc" bitsize="64" type="code_ptr"/>
  </feature>
</target>
`

// copyAt copies doc[offset:] into buf.
func copyAt(doc []byte, offset uint64, buf []byte) int {
	if offset >= uint64(len(doc)) {
		return 0
	}
	return copy(buf, doc[offset:])
}

func (m *Machine) OnStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extended = true
	m.log.Debug().Msg("extended mode enabled")
	return nil
}

// Run restarts the machine, loading filename as the new image if given.
func (m *Machine) Run(filename string, args []string) (target.Pid, error) {
	var img Image
	if filename != "" {
		var err error
		if img, err = LoadELF(filename); err != nil {
			m.log.Warn().Err(err).Str("file", filename).Msg("vRun")
			return 0, unix.ENOENT
		}
	}
	if m.running.Load() {
		return 0, unix.EBUSY
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if filename != "" {
		if img.Entry == 0 {
			img.Entry = img.LoadAddr
		}
		m.cfg.Image = img
		m.cfg.ExecPath = filename
	}
	m.args = args
	m.pid++
	m.attach = target.Spawned
	m.reset()
	return m.pid, nil
}

func (m *Machine) Attach(pid target.Pid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pid != m.pid || !m.alive {
		return unix.ESRCH
	}
	m.attach = target.Attached
	return nil
}

// Kill stops the program. Outside extended mode there is nothing left to
// debug afterwards.
func (m *Machine) Kill(pid target.Pid) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pid != 0 && pid != m.pid {
		return false, unix.ESRCH
	}
	m.alive = false
	return !m.extended, nil
}

func (m *Machine) Restart() error {
	if m.running.Load() {
		return unix.EBUSY
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

func (m *Machine) QueryIfAttached(pid target.Pid) (target.AttachKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pid != 0 && pid != m.pid {
		return 0, unix.ESRCH
	}
	return m.attach, nil
}

func (m *Machine) SupportConfigureASLR() target.ConfigureASLROps                 { return m }
func (m *Machine) SupportConfigureEnv() target.ConfigureEnvOps                   { return m }
func (m *Machine) SupportConfigureStartupShell() target.ConfigureStartupShellOps { return m }
func (m *Machine) SupportConfigureWorkingDir() target.ConfigureWorkingDirOps     { return m }

func (m *Machine) ConfigureASLR(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aslr = enabled
	return nil
}

func (m *Machine) SetEnv(key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.env[key] = val
	return nil
}

func (m *Machine) RemoveEnv(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.env, key)
	return nil
}

func (m *Machine) ResetEnv() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.env = make(map[string]string)
	return nil
}

func (m *Machine) ConfigureStartupShell(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupShell = enabled
	return nil
}

func (m *Machine) ConfigureWorkingDir(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workDir = dir
	return nil
}

const monitorHelp = `commands:
  help      show this text
  reset     reload the program
  threads   list threads and their pc
  history   show the number of recorded steps
  catch     show the syscall catch filter
  config    show the settings for the next run
`

func (m *Machine) HandleMonitorCmd(cmd []byte, out io.Writer) error {
	fields := strings.Fields(string(cmd))
	if len(fields) == 0 {
		fields = []string{"help"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch fields[0] {
	case "help":
		io.WriteString(out, monitorHelp)
	case "reset":
		if m.running.Load() {
			return unix.EBUSY
		}
		m.reset()
		io.WriteString(out, "reset\n")
	case "threads":
		for _, tid := range m.activeThreads() {
			fmt.Fprintf(out, "%d pc=%#x\n", tid, m.threads[tid].regs[regPC])
		}
	case "history":
		fmt.Fprintf(out, "%d steps\n", len(m.history))
	case "catch":
		switch {
		case !m.catch:
			io.WriteString(out, "off\n")
		case m.catchFilter == nil:
			io.WriteString(out, "all\n")
		default:
			nrs := make([]uint64, 0, len(m.catchFilter))
			for nr := range m.catchFilter {
				nrs = append(nrs, nr)
			}
			sort.Slice(nrs, func(i, j int) bool { return nrs[i] < nrs[j] })
			fmt.Fprintln(out, nrs)
		}
	case "config":
		fmt.Fprintf(out, "args=%q cwd=%q aslr=%t shell=%t\n", m.args, m.workDir, m.aslr, m.startupShell)
		keys := make([]string, 0, len(m.env))
		for k := range m.env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%s=%s\n", k, m.env[k])
		}
	default:
		fmt.Fprintf(out, "unknown command %q\n", fields[0])
	}
	return nil
}

func (m *Machine) GetSectionOffsets() (target.Offsets, error) {
	b := m.cfg.LoadBias
	return target.Offsets{Kind: target.OffsetsSections, Text: b, Data: b, Bss: b}, nil
}

func (m *Machine) memoryMap() []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0"?>` + "\n")
	buf.WriteString(`<!DOCTYPE memory-map PUBLIC "+//IDN gnu.org//DTD GDB Memory Map V1.0//EN" "http://sourceware.org/gdb/gdb-memory-map.dtd">` + "\n")
	buf.WriteString("<memory-map>\n")
	for _, r := range m.mem.regions {
		kind := "ram"
		if r.rom {
			kind = "rom"
		}
		fmt.Fprintf(&buf, "  <memory type=%q start=\"%#x\" length=\"%#x\"/>\n", kind, r.start, r.size)
	}
	buf.WriteString("</memory-map>\n")
	return buf.Bytes()
}

func (m *Machine) MemoryMapXML(offset uint64, buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyAt(m.memoryMap(), offset, buf), nil
}

func (m *Machine) GetExecFile(pid target.Pid, offset uint64, buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pid != 0 && pid != m.pid {
		return 0, unix.ESRCH
	}
	return copyAt([]byte(m.cfg.ExecPath), offset, buf), nil
}

func (m *Machine) GetAuxv(offset uint64, buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := auxv.Encode([]auxv.Entry{
		{Tag: auxv.AT_PAGESZ, Val: pageSize},
		{Tag: auxv.AT_ENTRY, Val: m.cfg.Image.Entry},
	})
	return copyAt(v, offset, buf), nil
}

func (m *Machine) TargetDescriptionXML(annex string, offset uint64, buf []byte) (int, error) {
	if annex != "target.xml" {
		return 0, unix.ENOENT
	}
	return copyAt([]byte(targetXML), offset, buf), nil
}
