package config

// SERVER_YML is the server config used with --dev.
// privateKeyPem is left empty so a throwaway signing key is generated on start.
const SERVER_YML = `
phonebook:
  privateKeyPem: ""
  tokenTTLHours: 24
  cron:
    timeZone: "America/Toronto"
  listener:
    port: 3000

database:
  driver: sqlite

sqlite:
  passPhrase: passphrase

mysql:
  dsn: "phonebook:password@tcp(127.0.0.1:3306)/phonebook?charset=utf8mb4&parseTime=True&loc=Local"

session:
  backend: memory
  ttlMinutes: 120

redis:
  addr: "127.0.0.1:6379"
  password: ""
  db: 0

google:
  applicationCredentials:
  storage:
    bucket: "phonebook"
    prefix: "phonebook-dev"
    sqliteBackupSchedule: "*/30 * * * *"
    enableSqliteBackupAndSync: false
`
