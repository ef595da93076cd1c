package param

import (
	"os"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

// In leu of interface(s) in "gopsutil" library - only necessary methods
type IQProcess interface {
	GetPID() int32
	MemoryInfo() (*process.MemoryInfoStat, error)
	NumThreads() (int32, error)
	Times() (*cpu.TimesStat, error)
}

// Wrapper for process.Process for mocking in public
type QProcess struct {
	*process.Process
}

// Resource usage of a process
type ProcStatus struct {
	PID     int32   `json:"pid"`
	CpuMs   float64 `json:"cpu_ms"`
	MemKB   uint64  `json:"mem_kb"`
	Threads int32   `json:"threads"`
}

var (
	NO_TIMESTAT = &cpu.TimesStat{}
	NO_MEMSTAT  = &process.MemoryInfoStat{}
)

// Creates new instance to avoid "struct literal uses unkeyed fields"
func NewQProcess(p *process.Process) *QProcess {
	return &QProcess{p}
}

// Wraps the current process
func SelfProcess() (*QProcess, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return NewQProcess(p), nil
}

func (p *QProcess) GetPID() int32 {
	return p.Pid
}

// Collects process statistics; unavailable values are zeros
func QueryStatus(proc IQProcess) ProcStatus {
	times := AssumeOnErr(proc.Times, NO_TIMESTAT)
	memInfo := AssumeOnErr(proc.MemoryInfo, NO_MEMSTAT)

	return ProcStatus{
		PID:     proc.GetPID(),
		CpuMs:   (times.User + times.System) * 1000,
		MemKB:   memInfo.RSS / 1024,
		Threads: AssumeOnErr(proc.NumThreads, 0),
	}
}
