package sqlinline

const QCreateSchema = `--sql 58627dfe-12bb-4e0d-a89e-594eb025aa09
create extension if not exists pgcrypto;

create table if not exists profiles (
    id                 uuid primary key default gen_random_uuid(),
    email              text not null unique,
    role               text not null default 'free' check (role in ('free', 'owner', 'reseller')),
    credits_balance    integer not null default 0 check (credits_balance >= 0),
    free_credits_used  integer not null default 0 check (free_credits_used >= 0),
    free_period_start  date,
    created_at         timestamptz not null default now(),
    updated_at         timestamptz not null default now()
);

create table if not exists guest_usage (
    fingerprint   text not null,
    period_start  date not null,
    used          integer not null default 0,
    created_at    timestamptz not null default now(),
    updated_at    timestamptz not null default now(),
    primary key (fingerprint, period_start)
);

create table if not exists credit_transactions (
    id                uuid primary key default gen_random_uuid(),
    profile_id        uuid not null references profiles(id),
    transaction_type  text not null,
    paid_amount       integer not null default 0,
    free_amount       integer not null default 0,
    source            text not null default '',
    reference         text not null default '',
    created_at        timestamptz not null default now()
);

create index if not exists credit_transactions_profile_idx on credit_transactions (profile_id, created_at desc);
`
