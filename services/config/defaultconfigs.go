package config

// -----------------------------------------------------------------------------
// Embedded profiles
//
// Each profile is a YAML overlay applied on top of Default(). Key: profile
// name as passed to Load.
// -----------------------------------------------------------------------------

const cfgSim = `
platform: sim
tof:
  poll_interval: 1ms
stream:
  interval: 200ms
log:
  level: debug
  development: true
`

const cfgPi = `
platform: periph
motor: {in1: 17, in2: 27, in3: 22, in4: 23}
tof:
  bus: "1"
  xshut: 4
  sda: 2
  scl: 3
  poll_interval: 2ms
`

var embeddedProfiles = map[string][]byte{
	"sim": []byte(cfgSim),
	"pi":  []byte(cfgPi),
}
